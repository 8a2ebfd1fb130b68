// Package events is the ephemeral side of the party message bus: triggers
// are broadcast once to current subscribers and never stored. It is kept
// separate from chat on purpose; retention and replay semantics differ.
package events

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/middleware"
	"github.com/couchparty/backend/internal/models"
	"github.com/couchparty/backend/internal/parties"
	"github.com/couchparty/backend/internal/realtime"
	"github.com/couchparty/backend/pkg/response"
)

// TriggerRequest is the body for POST /parties/:id/events.
type TriggerRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// Handler handles ephemeral event triggers.
type Handler struct {
	parties *parties.Repository
	hub     *realtime.Hub
	logger  *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(partyRepo *parties.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{parties: partyRepo, hub: hub, logger: logger}
}

// Trigger handles POST /parties/:id/events (members only). The event is
// published through Redis only: the triggering client hears its own event
// via the same round trip as everyone else, so all participants experience
// the effect in the same relative order and nothing double-fires.
func (h *Handler) Trigger(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	member, err := h.parties.IsMember(c.Request.Context(), partyID, userID)
	if err != nil {
		response.Internal(c, "failed to trigger event")
		return
	}
	if !member {
		response.NotFound(c, "party not found")
		return
	}

	ev := models.PartyEvent{
		PartyID: partyID,
		Type:    req.Type,
		Payload: req.Payload,
		FiredAt: time.Now().UTC(),
	}
	h.hub.PublishToParty(partyID, realtime.EventPartyEvent, ev)
	h.logger.Debug("party event triggered",
		zap.String("party_id", partyID.String()),
		zap.String("type", req.Type))
	response.OK(c, ev)
}
