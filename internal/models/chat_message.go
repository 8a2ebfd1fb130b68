package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind distinguishes user text from server-generated notices.
type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindSystem MessageKind = "system"
)

// ChatMessage is one immutable entry in a party's chat log.
// Total order is (sent_at, id) ascending.
type ChatMessage struct {
	ID         uuid.UUID   `json:"id"`
	PartyID    uuid.UUID   `json:"party_id"`
	SenderID   uuid.UUID   `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"kind"`
	SentAt     time.Time   `json:"sent_at"`
}
