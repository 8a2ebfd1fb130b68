package models

import (
	"time"

	"github.com/google/uuid"
)

// PartyStatus is the lifecycle state of a watch party.
type PartyStatus string

const (
	PartyStatusActive PartyStatus = "active"
	PartyStatusEnded  PartyStatus = "ended"
)

// Party is a shared viewing session. Its id doubles as the join code.
// Playback fields (media_source, current_position, is_playing) have exactly
// one legitimate writer: the current host.
type Party struct {
	ID              uuid.UUID   `json:"id"`
	HostID          uuid.UUID   `json:"host_id"`
	MediaSource     string      `json:"media_source"`
	CurrentPosition float64     `json:"current_position"`
	IsPlaying       bool        `json:"is_playing"`
	Status          PartyStatus `json:"status"`
	ParticipantIDs  []uuid.UUID `json:"participant_ids,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// PartyParticipant links a user to a party (idempotent membership).
type PartyParticipant struct {
	PartyID  uuid.UUID `json:"party_id"`
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}
