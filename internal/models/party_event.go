package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PartyEvent is an ephemeral broadcast (e.g. a soundboard trigger).
// Events are delivered once to current subscribers and never persisted.
type PartyEvent struct {
	PartyID uuid.UUID       `json:"party_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	FiredAt time.Time       `json:"fired_at"`
}
