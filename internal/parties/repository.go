package parties

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchparty/backend/internal/models"
)

var (
	// ErrNotFound means no party exists for the given id/join code.
	ErrNotFound = errors.New("party not found")
	// ErrNotHost means a playback-state write was attempted by a non-host.
	ErrNotHost = errors.New("only the host may change playback state")
	// ErrEnded means the party has already ended.
	ErrEnded = errors.New("party has ended")
)

// Repository handles party persistence. Host-only writes are enforced here,
// in SQL, not just in client code: guarded UPDATEs touch zero rows unless the
// caller is the current host of an active party.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a party repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new party with the host as sole participant, paused at
// position 0. The generated id doubles as the join code.
func (r *Repository) Create(ctx context.Context, hostID uuid.UUID, mediaSource string) (*models.Party, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO parties (id, host_id, media_source, current_position, is_playing, status)
		VALUES (gen_random_uuid(), $1, $2, 0, FALSE, 'active')
		RETURNING id, host_id, media_source, current_position, is_playing, status, created_at, updated_at`
	var p models.Party
	err = tx.QueryRow(ctx, q, hostID, mediaSource).
		Scan(&p.ID, &p.HostID, &p.MediaSource, &p.CurrentPosition, &p.IsPlaying, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert party: %w", err)
	}

	const pq = `INSERT INTO party_participants (party_id, user_id) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, pq, p.ID, hostID); err != nil {
		return nil, fmt.Errorf("insert host membership: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	p.ParticipantIDs = []uuid.UUID{hostID}
	return &p, nil
}

// GetByID returns a party with its participant ids.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	const q = `SELECT id, host_id, media_source, current_position, is_playing, status, created_at, updated_at
		FROM parties WHERE id = $1`
	var p models.Party
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.HostID, &p.MediaSource, &p.CurrentPosition, &p.IsPlaying, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ids, err := r.Participants(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ParticipantIDs = ids
	return &p, nil
}

// Participants returns member ids ordered by join time.
func (r *Repository) Participants(ctx context.Context, partyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM party_participants WHERE party_id = $1 ORDER BY joined_at, user_id`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsMember reports whether the user has joined the party.
func (r *Repository) IsMember(ctx context.Context, partyID, userID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM party_participants WHERE party_id = $1 AND user_id = $2`
	var one int
	err := r.pool.QueryRow(ctx, q, partyID, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Join adds a user to an active party. Idempotent: joining twice is a no-op.
// Returns ErrNotFound for unknown codes (a failed join never creates a
// party) and ErrEnded for parties that are over.
func (r *Repository) Join(ctx context.Context, partyID, userID uuid.UUID) error {
	const q = `SELECT status FROM parties WHERE id = $1`
	var status models.PartyStatus
	if err := r.pool.QueryRow(ctx, q, partyID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if status == models.PartyStatusEnded {
		return ErrEnded
	}
	const iq = `INSERT INTO party_participants (party_id, user_id) VALUES ($1, $2)
		ON CONFLICT (party_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, iq, partyID, userID)
	return err
}

// UpdateMedia replaces the media source (host only). Position resets to 0
// and playback pauses so every viewer reloads from a fresh baseline.
func (r *Repository) UpdateMedia(ctx context.Context, partyID, callerID uuid.UUID, mediaSource string) (*models.Party, error) {
	const q = `UPDATE parties
		SET media_source = $1, current_position = 0, is_playing = FALSE, updated_at = NOW()
		WHERE id = $2 AND host_id = $3 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, q, mediaSource, partyID, callerID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, r.classifyWriteFailure(ctx, partyID, callerID)
	}
	return r.GetByID(ctx, partyID)
}

// UpdateState writes the host heartbeat fields (host only).
func (r *Repository) UpdateState(ctx context.Context, partyID, callerID uuid.UUID, position float64, playing bool) error {
	if position < 0 {
		position = 0
	}
	const q = `UPDATE parties
		SET current_position = $1, is_playing = $2, updated_at = NOW()
		WHERE id = $3 AND host_id = $4 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, q, position, playing, partyID, callerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.classifyWriteFailure(ctx, partyID, callerID)
	}
	return nil
}

// End transitions the party to ended (host only). The transition is one-way.
func (r *Repository) End(ctx context.Context, partyID, callerID uuid.UUID) error {
	const q = `UPDATE parties SET status = 'ended', is_playing = FALSE, updated_at = NOW()
		WHERE id = $1 AND host_id = $2 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, q, partyID, callerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.classifyWriteFailure(ctx, partyID, callerID)
	}
	return nil
}

// ForceEnd ends a party regardless of caller, for the abandonment sweeper.
// Only ends parties whose state has been stale longer than the grace period
// and that still have no open presence. Returns true if the row changed.
func (r *Repository) ForceEnd(ctx context.Context, partyID uuid.UUID, graceMinutes int) (bool, error) {
	const q = `UPDATE parties SET status = 'ended', is_playing = FALSE, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		AND updated_at < NOW() - make_interval(mins => $2)
		AND NOT EXISTS (
			SELECT 1 FROM presence_logs WHERE party_id = $1 AND left_at IS NULL
		)`
	tag, err := r.pool.Exec(ctx, q, partyID, graceMinutes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// classifyWriteFailure explains why a guarded host-only write matched no rows.
func (r *Repository) classifyWriteFailure(ctx context.Context, partyID, callerID uuid.UUID) error {
	const q = `SELECT host_id, status FROM parties WHERE id = $1`
	var hostID uuid.UUID
	var status models.PartyStatus
	if err := r.pool.QueryRow(ctx, q, partyID).Scan(&hostID, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if status == models.PartyStatusEnded {
		return ErrEnded
	}
	if hostID != callerID {
		return ErrNotHost
	}
	return ErrNotFound
}
