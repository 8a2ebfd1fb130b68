package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/parties"
	"github.com/couchparty/backend/pkg/queue"
)

// ErrNotDue means the sweep's grace period has not elapsed yet. The job is
// requeued rather than retried.
var ErrNotDue = errors.New("sweep not due yet")

// pollInterval is how long the loop pauses after requeueing a not-yet-due
// sweep, so a near-empty queue does not spin.
const pollInterval = 30 * time.Second

// SweepProcessor processes abandoned-party sweep jobs. A sweep fires when
// the last participant disconnects; after the grace period the party is
// force-ended so it cannot linger "active" forever with nobody in it.
type SweepProcessor struct {
	partyRepo    *parties.Repository
	queue        *queue.Queue
	graceMinutes int
	logger       *zap.Logger
}

// NewSweepProcessor creates an abandoned-party sweep processor.
func NewSweepProcessor(partyRepo *parties.Repository, q *queue.Queue, graceMinutes int, logger *zap.Logger) *SweepProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if graceMinutes <= 0 {
		graceMinutes = 30
	}
	return &SweepProcessor{partyRepo: partyRepo, queue: q, graceMinutes: graceMinutes, logger: logger}
}

// Process executes one sweep job. Ending only happens when the party is
// still active, stale past the grace period, and has no open presence
// spans; otherwise the job completes as a no-op. A party that came back to
// life is not an error, so no retry.
func (p *SweepProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypePartySweep {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.PartySweepPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if time.Since(job.CreatedAt) < time.Duration(p.graceMinutes)*time.Minute {
		return ErrNotDue
	}

	ended, err := p.partyRepo.ForceEnd(ctx, payload.PartyID, p.graceMinutes)
	if err != nil {
		return fmt.Errorf("force end: %w", err)
	}
	if ended {
		p.logger.Info("abandoned party ended", zap.String("party_id", payload.PartyID.String()))
	} else {
		p.logger.Debug("party not swept (active, recent, or already ended)", zap.String("party_id", payload.PartyID.String()))
	}
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *SweepProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("sweep worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); errors.Is(err, ErrNotDue) {
			if reErr := p.queue.Requeue(ctx, job); reErr != nil {
				p.logger.Error("requeue failed", zap.Error(reErr))
			}
			select {
			case <-ctx.Done():
			case <-time.After(pollInterval):
			}
			continue
		} else if err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
