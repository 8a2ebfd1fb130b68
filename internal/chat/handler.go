package chat

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/middleware"
	"github.com/couchparty/backend/internal/models"
	"github.com/couchparty/backend/internal/parties"
	"github.com/couchparty/backend/internal/realtime"
	"github.com/couchparty/backend/pkg/response"
)

// SendRequest is the body for POST /parties/:id/messages.
type SendRequest struct {
	Content string `json:"content" binding:"required"`
}

// Handler handles chat HTTP endpoints and realtime fan-out.
type Handler struct {
	repo    *Repository
	parties *parties.Repository
	hub     *realtime.Hub
	logger  *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository, partyRepo *parties.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, parties: partyRepo, hub: hub, logger: logger}
}

// Send handles POST /parties/:id/messages (members only). The message is
// persisted first, then published through Redis only, so every subscriber,
// the sender included, receives it exactly once in log order.
func (h *Handler) Send(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	userName, _ := c.MustGet(middleware.ContextUserName).(string)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	member, err := h.parties.IsMember(c.Request.Context(), partyID, userID)
	if err != nil {
		response.Internal(c, "failed to send message")
		return
	}
	if !member {
		response.NotFound(c, "party not found")
		return
	}

	m := &models.ChatMessage{
		PartyID:    partyID,
		SenderID:   userID,
		SenderName: userName,
		Content:    req.Content,
		Kind:       models.MessageKindText,
	}
	if err := h.repo.Append(c.Request.Context(), m); err != nil {
		h.logger.Error("append chat message", zap.Error(err))
		response.Internal(c, "failed to send message")
		return
	}

	h.hub.PublishToParty(partyID, realtime.EventChatMessage, m)
	response.Created(c, m)
}

// Backlog handles GET /parties/:id/messages (members only): the full
// ordered log, delivered before incremental appends on the live feed.
func (h *Handler) Backlog(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	member, err := h.parties.IsMember(c.Request.Context(), partyID, userID)
	if err != nil {
		response.Internal(c, "failed to load messages")
		return
	}
	if !member {
		response.NotFound(c, "party not found")
		return
	}

	list, err := h.repo.ListByParty(c.Request.Context(), partyID)
	if err != nil {
		h.logger.Error("list chat messages", zap.Error(err))
		response.Internal(c, "failed to load messages")
		return
	}
	response.OK(c, gin.H{"messages": list})
}
