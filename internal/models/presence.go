package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceLog tracks one connected span of a participant in a party.
type PresenceLog struct {
	ID           uuid.UUID  `json:"id"`
	PartyID      uuid.UUID  `json:"party_id"`
	UserID       uuid.UUID  `json:"user_id"`
	JoinedAt     time.Time  `json:"joined_at"`
	LeftAt       *time.Time `json:"left_at,omitempty"`
	WatchSeconds int64      `json:"watch_seconds"`
	CreatedAt    time.Time  `json:"created_at"`
}
