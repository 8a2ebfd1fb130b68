package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchparty/backend/internal/models"
)

// Repository handles the append-only chat log. Messages are immutable once
// created; total order is (sent_at, id) ascending, assigned by the database
// so every subscriber observes the same order.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a text message and fills in its id and sent_at.
func (r *Repository) Append(ctx context.Context, m *models.ChatMessage) error {
	const q = `INSERT INTO chat_messages (id, party_id, sender_id, sender_name, content, kind)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, sent_at`
	err := r.pool.QueryRow(ctx, q, m.PartyID, m.SenderID, m.SenderName, m.Content, m.Kind).
		Scan(&m.ID, &m.SentAt)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// AppendSystem inserts a server-generated notice into the log.
func (r *Repository) AppendSystem(ctx context.Context, partyID uuid.UUID, content string) (*models.ChatMessage, error) {
	m := &models.ChatMessage{
		PartyID:    partyID,
		SenderID:   uuid.Nil,
		SenderName: "party",
		Content:    content,
		Kind:       models.MessageKindSystem,
	}
	if err := r.Append(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListByParty returns the full ordered backlog for a party.
func (r *Repository) ListByParty(ctx context.Context, partyID uuid.UUID) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, party_id, sender_id, sender_name, content, kind, sent_at
		 FROM chat_messages WHERE party_id = $1 ORDER BY sent_at ASC, id ASC`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.PartyID, &m.SenderID, &m.SenderName, &m.Content, &m.Kind, &m.SentAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
