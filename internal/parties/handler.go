package parties

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/middleware"
	"github.com/couchparty/backend/internal/models"
	"github.com/couchparty/backend/internal/realtime"
	"github.com/couchparty/backend/pkg/response"
)

// ChatLogger appends server-generated system messages to a party's chat log.
type ChatLogger interface {
	AppendSystem(ctx context.Context, partyID uuid.UUID, content string) (*models.ChatMessage, error)
}

// Store is the party persistence the handler writes through. *Repository
// satisfies it.
type Store interface {
	Create(ctx context.Context, hostID uuid.UUID, mediaSource string) (*models.Party, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error)
	IsMember(ctx context.Context, partyID, userID uuid.UUID) (bool, error)
	Join(ctx context.Context, partyID, userID uuid.UUID) error
	UpdateMedia(ctx context.Context, partyID, callerID uuid.UUID, mediaSource string) (*models.Party, error)
	UpdateState(ctx context.Context, partyID, callerID uuid.UUID, position float64, playing bool) error
	End(ctx context.Context, partyID, callerID uuid.UUID) error
}

// CreateRequest is the body for POST /parties.
type CreateRequest struct {
	MediaSource string `json:"media_source" binding:"required"`
}

// MediaRequest is the body for PATCH /parties/:id/media.
type MediaRequest struct {
	MediaSource string `json:"media_source" binding:"required"`
}

// StateRequest is the body for PATCH /parties/:id/state (host heartbeat).
type StateRequest struct {
	Position float64 `json:"position"`
	Playing  bool    `json:"playing"`
}

// Handler handles party HTTP endpoints.
type Handler struct {
	repo   Store
	chat   ChatLogger
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewHandler creates a party handler.
func NewHandler(repo Store, chat ChatLogger, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, chat: chat, hub: hub, logger: logger}
}

// Create handles POST /parties. The caller becomes host and sole member.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	p, err := h.repo.Create(c.Request.Context(), userID, req.MediaSource)
	if err != nil {
		h.logger.Error("create party", zap.Error(err))
		response.Internal(c, "failed to create party")
		return
	}
	response.Created(c, p)
}

// GetByID handles GET /parties/:id (members only).
func (h *Handler) GetByID(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	p, err := h.repo.GetByID(c.Request.Context(), partyID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	member, err := h.repo.IsMember(c.Request.Context(), partyID, userID)
	if err != nil || !member {
		response.NotFound(c, "party not found")
		return
	}
	response.OK(c, p)
}

// Join handles POST /parties/:id/join. Idempotent; never creates a party.
func (h *Handler) Join(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// The join code is the party uuid; anything else cannot exist.
		response.NotFound(c, "party not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	userName, _ := c.MustGet(middleware.ContextUserName).(string)

	wasMember, err := h.repo.IsMember(c.Request.Context(), partyID, userID)
	if err != nil {
		response.Internal(c, "failed to join party")
		return
	}
	if err := h.repo.Join(c.Request.Context(), partyID, userID); err != nil {
		h.respondErr(c, err)
		return
	}
	if !wasMember {
		h.systemMessage(c.Request.Context(), partyID, fmt.Sprintf("%s joined the party", userName))
	}

	p, err := h.repo.GetByID(c.Request.Context(), partyID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, p)
}

// UpdateMedia handles PATCH /parties/:id/media (host only). Broadcasts the
// new state so every viewer reloads from a fresh baseline.
func (h *Handler) UpdateMedia(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req MediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.repo.UpdateMedia(c.Request.Context(), partyID, userID, req.MediaSource)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	h.hub.PublishToParty(partyID, realtime.EventSessionState, p)
	h.systemMessage(c.Request.Context(), partyID, "now watching "+req.MediaSource)
	response.OK(c, p)
}

// PublishState handles PATCH /parties/:id/state, the host heartbeat write.
// The updated document is pushed to all subscribed viewers.
func (h *Handler) PublishState(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req StateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.repo.UpdateState(c.Request.Context(), partyID, userID, req.Position, req.Playing); err != nil {
		h.respondErr(c, err)
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), partyID)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	h.hub.PublishToParty(partyID, realtime.EventSessionState, p)
	response.OK(c, p)
}

// End handles POST /parties/:id/end (host only). active -> ended, one way.
func (h *Handler) End(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if err := h.repo.End(c.Request.Context(), partyID, userID); err != nil {
		h.respondErr(c, err)
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), partyID)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	h.systemMessage(c.Request.Context(), partyID, "the party has ended")
	h.hub.PublishToParty(partyID, realtime.EventSessionState, p)
	h.hub.PublishToParty(partyID, realtime.EventPartyEnded, gin.H{"party_id": partyID})
	response.OK(c, p)
}

// ParticipantCount returns live connected-client count from the hub.
func (h *Handler) ParticipantCount(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	count := h.hub.PartyCount(partyID)
	response.OK(c, gin.H{"party_id": partyID, "count": count})
}

func (h *Handler) systemMessage(ctx context.Context, partyID uuid.UUID, content string) {
	if h.chat == nil {
		return
	}
	msg, err := h.chat.AppendSystem(ctx, partyID, content)
	if err != nil {
		h.logger.Warn("system chat message", zap.Error(err))
		return
	}
	h.hub.PublishToParty(partyID, realtime.EventChatMessage, msg)
}

func (h *Handler) respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "party not found")
	case errors.Is(err, ErrEnded):
		response.Conflict(c, "party has ended")
	case errors.Is(err, ErrNotHost):
		response.Forbidden(c, "only the host may do this")
	default:
		h.logger.Error("party request", zap.Error(err))
		response.Internal(c, "request failed")
	}
}
