package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/couchparty/backend/internal/models"
)

func msgAt(t time.Time, id string, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:      uuid.MustParse(id),
		SentAt:  t,
		Content: content,
		Kind:    models.MessageKindText,
	}
}

func TestSortTotalOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	msgs := []models.ChatMessage{
		msgAt(base.Add(2*time.Second), "cccccccc-0000-0000-0000-000000000000", "third"),
		msgAt(base, "bbbbbbbb-0000-0000-0000-000000000000", "second"),
		msgAt(base, "aaaaaaaa-0000-0000-0000-000000000000", "first"),
	}

	Sort(msgs)

	got := []string{msgs[0].Content, msgs[1].Content, msgs[2].Content}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestMergeDropsDuplicatesAndRestoresOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	shared := msgAt(base.Add(time.Second), "bbbbbbbb-0000-0000-0000-000000000000", "shared")

	backlog := []models.ChatMessage{
		msgAt(base, "aaaaaaaa-0000-0000-0000-000000000000", "old"),
		shared,
	}
	// A live append raced the backlog fetch and arrived first.
	live := []models.ChatMessage{
		msgAt(base.Add(2*time.Second), "cccccccc-0000-0000-0000-000000000000", "new"),
		shared,
	}

	out := Merge(backlog, live)

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3 (duplicate dropped)", len(out))
	}
	want := []string{"old", "shared", "new"}
	for i := range want {
		if out[i].Content != want[i] {
			t.Fatalf("merged order = [%s %s %s], want %v", out[0].Content, out[1].Content, out[2].Content, want)
		}
	}
}

func TestMergeEmptyBacklog(t *testing.T) {
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	live := []models.ChatMessage{
		msgAt(base, "aaaaaaaa-0000-0000-0000-000000000000", "only"),
	}
	out := Merge(nil, live)
	if len(out) != 1 || out[0].Content != "only" {
		t.Fatalf("merge with empty backlog = %v", out)
	}
}
