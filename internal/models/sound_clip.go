package models

import (
	"time"

	"github.com/google/uuid"
)

// SoundClip is a soundboard audio file stored in S3, referenced by
// "play_sound" party events.
type SoundClip struct {
	ID          uuid.UUID `json:"id"`
	PartyID     uuid.UUID `json:"party_id"`
	Name        string    `json:"name"`
	FileURL     string    `json:"file_url"`
	S3Key       string    `json:"s3_key,omitempty"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
