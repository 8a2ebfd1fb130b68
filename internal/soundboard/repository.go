package soundboard

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchparty/backend/internal/models"
)

// ErrNotFound means no clip exists with the given id.
var ErrNotFound = errors.New("sound clip not found")

// Repository handles sound clip metadata; the audio bytes live in S3.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a soundboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts clip metadata after a successful S3 upload.
func (r *Repository) Create(ctx context.Context, clip *models.SoundClip) error {
	const q = `INSERT INTO sound_clips (id, party_id, name, file_url, s3_key, content_type, file_size, uploaded_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, clip.PartyID, clip.Name, clip.FileURL, clip.S3Key, clip.ContentType, clip.FileSize, clip.UploadedBy).
		Scan(&clip.ID, &clip.CreatedAt)
}

// GetByID returns a clip by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SoundClip, error) {
	const q = `SELECT id, party_id, name, file_url, s3_key, content_type, file_size, uploaded_by, created_at
		FROM sound_clips WHERE id = $1`
	var clip models.SoundClip
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&clip.ID, &clip.PartyID, &clip.Name, &clip.FileURL, &clip.S3Key, &clip.ContentType, &clip.FileSize, &clip.UploadedBy, &clip.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &clip, nil
}

// ListByParty returns all clips for a party.
func (r *Repository) ListByParty(ctx context.Context, partyID uuid.UUID) ([]models.SoundClip, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, party_id, name, file_url, s3_key, content_type, file_size, uploaded_by, created_at
		 FROM sound_clips WHERE party_id = $1 ORDER BY created_at`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SoundClip
	for rows.Next() {
		var clip models.SoundClip
		if err := rows.Scan(&clip.ID, &clip.PartyID, &clip.Name, &clip.FileURL, &clip.S3Key, &clip.ContentType, &clip.FileSize, &clip.UploadedBy, &clip.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, clip)
	}
	return list, rows.Err()
}

// Delete removes clip metadata.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sound_clips WHERE id = $1`, id)
	return err
}
