package presence

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/couchparty/backend/internal/middleware"
	"github.com/couchparty/backend/internal/parties"
	"github.com/couchparty/backend/pkg/response"
)

// Handler exposes the presence log over HTTP.
type Handler struct {
	repo    *Repository
	parties *parties.Repository
}

// NewHandler creates a presence handler.
func NewHandler(repo *Repository, partyRepo *parties.Repository) *Handler {
	return &Handler{repo: repo, parties: partyRepo}
}

// ListByParty handles GET /parties/:id/presence (members only).
func (h *Handler) ListByParty(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	member, err := h.parties.IsMember(c.Request.Context(), partyID, userID)
	if err != nil || !member {
		response.NotFound(c, "party not found")
		return
	}

	list, err := h.repo.ListByParty(c.Request.Context(), partyID)
	if err != nil {
		response.Internal(c, "failed to list presence")
		return
	}
	response.OK(c, gin.H{"presence": list})
}
