package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/couchparty/backend/pkg/queue"
)

func sweepJob(createdAt time.Time) *queue.Job {
	payload, _ := json.Marshal(queue.PartySweepPayload{PartyID: uuid.New()})
	return &queue.Job{
		ID:        uuid.New().String(),
		Type:      queue.JobTypePartySweep,
		Payload:   payload,
		CreatedAt: createdAt,
	}
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewSweepProcessor(nil, nil, 30, nil)
	job := sweepJob(time.Now())
	job.Type = "email"
	if err := p.Process(context.Background(), job); err == nil {
		t.Fatal("unknown job type accepted")
	}
}

func TestProcessNotDueBeforeGracePeriod(t *testing.T) {
	p := NewSweepProcessor(nil, nil, 30, nil)
	err := p.Process(context.Background(), sweepJob(time.Now()))
	if !errors.Is(err, ErrNotDue) {
		t.Fatalf("err = %v, want ErrNotDue for a fresh job", err)
	}
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	p := NewSweepProcessor(nil, nil, 30, nil)
	job := sweepJob(time.Now().Add(-time.Hour))
	job.Payload = []byte("{")
	if err := p.Process(context.Background(), job); err == nil || errors.Is(err, ErrNotDue) {
		t.Fatalf("err = %v, want unmarshal failure", err)
	}
}
