package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/service"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// GET /api/tordai/chats
func (h *ChatHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), c.ClientIP())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /api/tordai/chats
func (h *ChatHandler) Create(c *gin.Context) {
	var req struct {
		ID       string          `json:"id"`
		Title    string          `json:"title"`
		Messages json.RawMessage `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	chat, err := h.svc.Save(c.Request.Context(), c.ClientIP(), req.ID, req.Title, req.Messages)
	if errors.Is(err, service.ErrInvalidChat) {
		badRequest(c, "messages must be valid JSON")
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": chat.ID})
}

// GET /api/tordai/chats/:id
func (h *ChatHandler) Get(c *gin.Context) {
	chat, err := h.svc.Get(c.Request.Context(), c.ClientIP(), c.Param("id"))
	if err != nil {
		notFoundOr(c, err, "chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        chat.ID,
		"title":     chat.Title,
		"messages":  json.RawMessage(chat.Messages),
		"createdAt": chat.CreatedAt,
		"updatedAt": chat.UpdatedAt,
	})
}

// PUT /api/tordai/chats/:id
func (h *ChatHandler) Update(c *gin.Context) {
	var req struct {
		Title    *string         `json:"title"`
		Messages json.RawMessage `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	err := h.svc.Update(c.Request.Context(), c.ClientIP(), c.Param("id"), req.Title, req.Messages)
	if errors.Is(err, service.ErrInvalidChat) {
		badRequest(c, "messages must be valid JSON")
		return
	}
	if err != nil {
		notFoundOr(c, err, "chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DELETE /api/tordai/chats/:id
func (h *ChatHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.ClientIP(), c.Param("id")); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
