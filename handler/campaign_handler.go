package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/service"
)

type CampaignHandler struct {
	svc *service.CampaignService
}

func NewCampaignHandler(svc *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

// GET /api/campaign
func (h *CampaignHandler) Current(c *gin.Context) {
	cur, err := h.svc.Current(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	if cur == nil {
		c.JSON(http.StatusOK, gin.H{"campaign": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"campaign":         cur.Campaign,
		"tasks":            cur.Tasks,
		"participantCount": cur.ParticipantCount,
	})
}

// POST /api/participate
func (h *CampaignHandler) Participate(c *gin.Context) {
	var req service.ParticipateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	res, err := h.svc.Participate(c.Request.Context(), c.ClientIP(), req)
	switch {
	case err == nil:
		msg := "entry recorded"
		if res.Updated {
			msg = "entry updated"
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "updated": res.Updated, "reward": res.Reward, "message": msg})
	case errors.Is(err, service.ErrMissingFields):
		badRequest(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
	case errors.Is(err, service.ErrCampaignClosed), errors.Is(err, service.ErrAlreadyEntered):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
	default:
		serverError(c, err)
	}
}

// GET /api/admin/campaign
func (h *CampaignHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": list})
}

// POST /api/admin/campaign/:id/restore
func (h *CampaignHandler) Restore(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	camp, err := h.svc.Restore(c.Request.Context(), id)
	if err != nil {
		notFoundOr(c, err, "campaign")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "campaign": camp})
}

// PUT /api/admin/campaign/:id
func (h *CampaignHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title         *string    `json:"title"`
		Description   *string    `json:"description"`
		BannerURL     *string    `json:"banner_url"`
		StartDate     *time.Time `json:"start_date"`
		EndDate       *time.Time `json:"end_date"`
		IsActive      *bool      `json:"is_active"`
		MaxWinners    *int       `json:"max_winners"`
		RewardPerUser *int64     `json:"reward_per_user"`
		TotalPrize    *string    `json:"total_prize"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	updates := map[string]interface{}{}
	set := func(col string, present bool, v interface{}) {
		if present {
			updates[col] = v
		}
	}
	set("title", req.Title != nil, req.Title)
	set("description", req.Description != nil, req.Description)
	set("banner_url", req.BannerURL != nil, req.BannerURL)
	set("start_date", req.StartDate != nil, req.StartDate)
	set("end_date", req.EndDate != nil, req.EndDate)
	set("is_active", req.IsActive != nil, req.IsActive)
	set("max_winners", req.MaxWinners != nil, req.MaxWinners)
	set("reward_per_user", req.RewardPerUser != nil, req.RewardPerUser)
	set("total_prize", req.TotalPrize != nil, req.TotalPrize)

	if err := h.svc.Update(c.Request.Context(), id, updates); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /api/admin/campaign/new
func (h *CampaignHandler) Create(c *gin.Context) {
	var req service.NewCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	camp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "campaign": camp})
}

// GET /api/admin/tasks/:campaignId
func (h *CampaignHandler) Tasks(c *gin.Context) {
	id, ok := idParam(c, "campaignId")
	if !ok {
		return
	}
	tasks, err := h.svc.Tasks(c.Request.Context(), id)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// POST /api/admin/task
func (h *CampaignHandler) CreateTask(c *gin.Context) {
	var t model.CampaignTask
	if err := c.ShouldBindJSON(&t); err != nil {
		badRequest(c, "invalid request")
		return
	}
	t.ID = 0
	err := h.svc.CreateTask(c.Request.Context(), &t)
	if errors.Is(err, service.ErrMissingFields) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": t})
}

// PUT /api/admin/task/:id
func (h *CampaignHandler) UpdateTask(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Label      *string `json:"label"`
		Points     *int    `json:"points"`
		ActionURL  *string `json:"action_url"`
		ButtonText *string `json:"button_text"`
		IconType   *string `json:"icon_type"`
		IsLocked   *bool   `json:"is_locked"`
		IsActive   *bool   `json:"is_active"`
		SortOrder  *int    `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	updates := map[string]interface{}{}
	if req.Label != nil {
		updates["label"] = *req.Label
	}
	if req.Points != nil {
		updates["points"] = *req.Points
	}
	if req.ActionURL != nil {
		updates["action_url"] = *req.ActionURL
	}
	if req.ButtonText != nil {
		updates["button_text"] = *req.ButtonText
	}
	if req.IconType != nil {
		updates["icon_type"] = *req.IconType
	}
	if req.IsLocked != nil {
		updates["is_locked"] = *req.IsLocked
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if err := h.svc.UpdateTask(c.Request.Context(), id, updates); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DELETE /api/admin/task/:id
func (h *CampaignHandler) DeleteTask(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteTask(c.Request.Context(), id); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/admin/participants/:campaignId
func (h *CampaignHandler) Participants(c *gin.Context) {
	id, ok := idParam(c, "campaignId")
	if !ok {
		return
	}
	page, limit := pageQuery(c)
	list, total, err := h.svc.Participants(c.Request.Context(), id, c.Query("search"), page, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"participants": list,
		"total":        total,
		"page":         page,
		"totalPages":   (total + int64(limit) - 1) / int64(limit),
	})
}

// GET /api/admin/participants/:campaignId/export
func (h *CampaignHandler) Export(c *gin.Context) {
	id, ok := idParam(c, "campaignId")
	if !ok {
		return
	}
	data, err := h.svc.ExportCSV(c.Request.Context(), id)
	if err != nil {
		serverError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=airdrop-participants-"+strconv.FormatUint(uint64(id), 10)+".csv")
	c.Data(http.StatusOK, "text/csv", data)
}

// DELETE /api/admin/participants/:campaignId/clear
func (h *CampaignHandler) Clear(c *gin.Context) {
	id, ok := idParam(c, "campaignId")
	if !ok {
		return
	}
	if err := h.svc.ClearParticipants(c.Request.Context(), id); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /api/admin/banner-upload
func (h *CampaignHandler) UploadBanner(c *gin.Context) {
	var req struct {
		Image      string `json:"image"`
		Filename   string `json:"filename"`
		CampaignID uint   `json:"campaign_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	url, err := h.svc.UploadBanner(c.Request.Context(), req.CampaignID, req.Image, req.Filename)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
	case errors.Is(err, service.ErrMissingFields), errors.Is(err, service.ErrInvalidBanner):
		badRequest(c, err.Error())
	default:
		notFoundOr(c, err, "campaign")
	}
}
