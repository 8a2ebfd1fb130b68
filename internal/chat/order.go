package chat

import (
	"sort"
	"strings"

	"github.com/couchparty/backend/internal/models"
)

// Sort orders messages by (sent_at, id) ascending, the log's total order.
// Clients use it when merging a fetched backlog with live appends that may
// have raced the backlog query.
func Sort(msgs []models.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].SentAt.Before(msgs[j].SentAt)
		}
		return strings.Compare(msgs[i].ID.String(), msgs[j].ID.String()) < 0
	})
}

// Merge combines a backlog with live messages, dropping duplicates by id and
// restoring the log's total order.
func Merge(backlog, live []models.ChatMessage) []models.ChatMessage {
	seen := make(map[string]struct{}, len(backlog)+len(live))
	out := make([]models.ChatMessage, 0, len(backlog)+len(live))
	for _, m := range append(backlog, live...) {
		key := m.ID.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	Sort(out)
	return out
}
