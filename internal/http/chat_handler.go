package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"compass-llm/internal/domain"
	"compass-llm/internal/service"
)

// ChatHandler mantiene dependencias para endpoints de conversaciones y turnos.
type ChatHandler struct {
	logger      *zap.Logger
	guidanceSvc *service.GuidanceService
	rateLimiter service.TurnRateLimiter
}

func NewChatHandler(logger *zap.Logger, guidanceSvc *service.GuidanceService, rateLimiter service.TurnRateLimiter) *ChatHandler {
	return &ChatHandler{
		logger:      logger,
		guidanceSvc: guidanceSvc,
		rateLimiter: rateLimiter,
	}
}

// CreateConversation maneja POST /conversations.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	var req struct {
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	conv, err := h.guidanceSvc.StartConversation(c.Request.Context(), claims.UserID, req.Language)
	if err != nil {
		h.writeSessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// ListConversations maneja GET /conversations.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	conversations, err := h.guidanceSvc.ListConversations(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list conversations"})
		return
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// History maneja GET /conversations/:id/messages.
func (h *ChatHandler) History(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	messages, err := h.guidanceSvc.History(c.Request.Context(), claims.UserID, c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	if err != nil {
		h.logger.Error("history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load history"})
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage maneja POST /conversations/:id/messages: un turno de guia.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	if h.rateLimiter != nil && !h.rateLimiter.Allow(claims.UserID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
		return
	}

	var req struct {
		Text       string `json:"text"`
		Attachment *struct {
			Data     string `json:"data" binding:"required"`
			MimeType string `json:"mime_type" binding:"required"`
		} `json:"attachment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	turn := domain.Turn{Text: req.Text}
	if req.Attachment != nil {
		turn.Attachment = &domain.InlineData{
			Data:     req.Attachment.Data,
			MimeType: req.Attachment.MimeType,
		}
	}

	userMsg, assistantMsg, err := h.guidanceSvc.SendTurn(c.Request.Context(), claims.UserID, c.Param("id"), turn)
	switch {
	case errors.Is(err, domain.ErrEmptyTurn):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message requires text or attachment"})
		return
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, domain.ErrProviderUnavailable):
		h.writeSessionError(c, err)
		return
	case err != nil:
		h.logger.Error("send turn failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_message":      userMsg,
		"assistant_message": assistantMsg,
	})
}

// DeleteConversation maneja DELETE /conversations/:id.
func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	err := h.guidanceSvc.DeleteConversation(c.Request.Context(), claims.UserID, c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	if err != nil {
		h.logger.Error("delete conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// writeSessionError distingue fallo de configuracion (alerta persistente de
// sistema) de indisponibilidad transitoria (reintentable en la proxima accion).
func (h *ChatHandler) writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		h.logger.Error("assistant misconfigured", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant is not configured", "retryable": false})
	case errors.Is(err, domain.ErrProviderUnavailable):
		h.logger.Warn("provider unavailable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant temporarily unavailable", "retryable": true})
	default:
		h.logger.Error("session creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
	}
}
