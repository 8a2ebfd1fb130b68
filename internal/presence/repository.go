package presence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchparty/backend/internal/models"
)

// Repository handles presence_logs: one row per connected span of a
// participant in a party. Fed by the hub's register/unregister callbacks.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a presence repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogJoin inserts a row when a client connects to a party feed.
func (r *Repository) LogJoin(ctx context.Context, partyID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO presence_logs (party_id, user_id, joined_at) VALUES ($1, $2, NOW())`,
		partyID, userID)
	return err
}

// LogLeave closes the most recent open span for this user in this party.
func (r *Repository) LogLeave(ctx context.Context, partyID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE presence_logs p SET left_at = NOW(), watch_seconds = GREATEST(0, EXTRACT(EPOCH FROM (NOW() - p.joined_at))::BIGINT)
		 FROM (SELECT id FROM presence_logs WHERE party_id = $1 AND user_id = $2 AND left_at IS NULL ORDER BY joined_at DESC LIMIT 1) AS sub
		 WHERE p.id = sub.id`,
		partyID, userID)
	return err
}

// OpenCount returns how many spans are still open for a party (connected
// participants as recorded in the log, across all server instances).
func (r *Repository) OpenCount(ctx context.Context, partyID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM presence_logs WHERE party_id = $1 AND left_at IS NULL`
	var n int
	err := r.pool.QueryRow(ctx, q, partyID).Scan(&n)
	return n, err
}

// ListByParty returns presence spans for a party, newest first.
func (r *Repository) ListByParty(ctx context.Context, partyID uuid.UUID) ([]models.PresenceLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, party_id, user_id, joined_at, left_at, watch_seconds, created_at
		 FROM presence_logs WHERE party_id = $1 ORDER BY joined_at DESC`,
		partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PresenceLog
	for rows.Next() {
		var row models.PresenceLog
		if err := rows.Scan(&row.ID, &row.PartyID, &row.UserID, &row.JoinedAt, &row.LeftAt, &row.WatchSeconds, &row.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// WatchAggregates holds total watch time and distinct viewer count.
type WatchAggregates struct {
	TotalWatchSeconds int64
	DistinctViewers   int
}

// GetWatchAggregates sums closed spans for a party.
func (r *Repository) GetWatchAggregates(ctx context.Context, partyID uuid.UUID) (*WatchAggregates, error) {
	const q = `SELECT COALESCE(SUM(watch_seconds), 0), COUNT(DISTINCT user_id)
		FROM presence_logs WHERE party_id = $1 AND left_at IS NOT NULL`
	var agg WatchAggregates
	if err := r.pool.QueryRow(ctx, q, partyID).Scan(&agg.TotalWatchSeconds, &agg.DistinctViewers); err != nil {
		return nil, err
	}
	return &agg, nil
}
