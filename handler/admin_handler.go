package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/service"
	"go.uber.org/zap"
)

type AdminHandler struct {
	auth       *service.AdminAuth
	settings   *service.SettingsService
	membership *service.MembershipService
	log        *zap.Logger
}

func NewAdminHandler(auth *service.AdminAuth, settings *service.SettingsService, membership *service.MembershipService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{auth: auth, settings: settings, membership: membership, log: log}
}

// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	token, expires, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "expiresAt": expires.UTC().Format(time.RFC3339)})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAdminDisabled):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		serverError(c, err)
	}
}

// POST /api/admin/logout
func (h *AdminHandler) Logout(c *gin.Context) {
	if token := bearerToken(c); token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			h.log.Warn("logout", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/admin/verify
func (h *AdminHandler) Verify(c *gin.Context) {
	token := bearerToken(c)
	if token == "" || h.auth.Validate(c.Request.Context(), token) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// GET /api/settings and GET /api/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	all, err := h.settings.All(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": all})
}

// PUT /api/admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		Settings map[string]string `json:"settings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "settings object is required")
		return
	}
	err := h.settings.Update(c.Request.Context(), req.Settings)
	if errors.Is(err, service.ErrInvalidSetting) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}
	h.GetSettings(c)
}

// --- membership management ---

// GET /api/admin/premium/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	s, err := h.membership.Stats(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"members": gin.H{
			"total":  s.Members.Total,
			"active": s.Members.Active,
			"banned": s.Members.Banned,
		},
		"purchases": gin.H{
			"total":        s.Purchases.Total,
			"revenue":      num(s.Purchases.Revenue),
			"balanceGiven": num(s.Purchases.BalanceGiven),
		},
		"recentPurchases7d": s.Purchases.Recent,
		"totalBalanceUsed":  num(s.Members.TotalUsed),
	})
}

// GET /api/admin/premium/members
func (h *AdminHandler) Members(c *gin.Context) {
	page, limit := pageQuery(c)
	list, total, err := h.membership.ListMembers(c.Request.Context(), c.Query("search"), c.Query("status"), page, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": list, "total": total, "page": page, "limit": limit})
}

// GET /api/admin/premium/purchases
func (h *AdminHandler) Purchases(c *gin.Context) {
	page, limit := pageQuery(c)
	list, total, err := h.membership.ListPurchases(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": list, "total": total, "page": page, "limit": limit})
}

// PUT /api/admin/premium/members/:wallet/ban
func (h *AdminHandler) Ban(c *gin.Context) {
	if err := h.membership.Ban(c.Request.Context(), walletParam(c)); err != nil {
		notFoundOr(c, err, "member")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PUT /api/admin/premium/members/:wallet/unban
func (h *AdminHandler) Unban(c *gin.Context) {
	if err := h.membership.Unban(c.Request.Context(), walletParam(c)); err != nil {
		notFoundOr(c, err, "member")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PUT /api/admin/premium/members/:wallet/badge
func (h *AdminHandler) SetBadge(c *gin.Context) {
	var req struct {
		Badge string `json:"badge"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	err := h.membership.SetBadge(c.Request.Context(), walletParam(c), req.Badge)
	if errors.Is(err, service.ErrUnknownBadge) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		notFoundOr(c, err, "member")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PUT /api/admin/premium/members/:wallet/adjust
func (h *AdminHandler) Adjust(c *gin.Context) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount.IsZero() {
		badRequest(c, "amount required")
		return
	}
	acct, err := h.membership.Adjust(c.Request.Context(), walletParam(c), req.Amount)
	if err != nil {
		notFoundOr(c, err, "member")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "newBalance": num(acct.PremiumBalance)})
}

// POST /api/admin/premium/members
func (h *AdminHandler) AddMember(c *gin.Context) {
	var req struct {
		Wallet  string          `json:"wallet" binding:"required,wallet"`
		Balance decimal.Decimal `json:"balance"`
		Badge   string          `json:"badge"`
		Plan    string          `json:"plan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	acct, err := h.membership.AddMember(c.Request.Context(), req.Wallet, req.Balance, req.Badge, req.Plan)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "member": acct})
	case errors.Is(err, service.ErrInvalidWallet), errors.Is(err, service.ErrUnknownBadge), errors.Is(err, service.ErrMemberExists):
		badRequest(c, err.Error())
	default:
		serverError(c, err)
	}
}

// DELETE /api/admin/premium/members/:wallet
func (h *AdminHandler) RemoveMember(c *gin.Context) {
	if err := h.membership.RemoveMember(c.Request.Context(), walletParam(c)); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
