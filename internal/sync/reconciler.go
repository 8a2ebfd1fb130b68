package sync

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reconciler applies host-published snapshots to the local player (viewer
// role). Apply is idempotent: re-applying an unchanged snapshot with drift
// inside the threshold performs no seek.
type Reconciler struct {
	player    Player
	threshold float64
	logger    *zap.Logger

	mu          sync.Mutex
	lastApplied time.Time
}

// NewReconciler creates a viewer reconciler. A non-positive threshold falls
// back to DriftThresholdSeconds.
func NewReconciler(player Player, threshold float64, logger *zap.Logger) *Reconciler {
	if threshold <= 0 {
		threshold = DriftThresholdSeconds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{player: player, threshold: threshold, logger: logger}
}

// Apply reconciles the local player against a remote snapshot.
//
// A media source change reloads the player and seeks straight to the remote
// position: the position jump from the reload is a fresh baseline, not drift.
// Otherwise position is only corrected when drift exceeds the threshold.
// Play state is reconciled independently of position.
func (r *Reconciler) Apply(s Snapshot) {
	r.mu.Lock()
	r.lastApplied = time.Now()
	r.mu.Unlock()

	if s.MediaSource != "" && s.MediaSource != r.player.Source() {
		r.logger.Info("media source changed, reloading",
			zap.String("source", s.MediaSource))
		r.player.SetSource(s.MediaSource)
		r.player.Seek(s.Position)
	} else {
		drift := math.Abs(r.player.CurrentTime() - s.Position)
		if drift > r.threshold {
			r.logger.Debug("drift above threshold, seeking",
				zap.Float64("drift", drift),
				zap.Float64("remote_position", s.Position))
			r.player.Seek(s.Position)
		}
	}

	if s.Playing && r.player.Paused() {
		r.player.Play()
	} else if !s.Playing && !r.player.Paused() {
		r.player.Pause()
	}
}

// LastApplied reports when the most recent snapshot was applied. The zero
// time means no snapshot has arrived yet. There is no host re-election: when
// the feed goes stale the player freezes at last-known-good state, and
// callers may only log or surface that.
func (r *Reconciler) LastApplied() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastApplied
}
