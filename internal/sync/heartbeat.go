package sync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultHeartbeatInterval is how often the host publishes its player state.
const DefaultHeartbeatInterval = 2 * time.Second

// PublishFunc pushes a snapshot to the session store. Failures are logged
// and skipped; the next tick publishes fresh state anyway.
type PublishFunc func(ctx context.Context, s Snapshot) error

// Heartbeat periodically publishes the local player's state (host role).
// It publishes on every tick, not on change, to bound write volume and keep
// propagation-delay reasoning simple.
type Heartbeat struct {
	player   Player
	publish  PublishFunc
	interval time.Duration
	logger   *zap.Logger
}

// NewHeartbeat creates a host heartbeat. A non-positive interval falls back
// to DefaultHeartbeatInterval.
func NewHeartbeat(player Player, publish PublishFunc, interval time.Duration, logger *zap.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Heartbeat{player: player, publish: publish, interval: interval, logger: logger}
}

// Run publishes until ctx is cancelled. Cancel the context when the client
// leaves the party or loses the host role.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("heartbeat stopped")
			return
		case <-ticker.C:
			snap := Snapshot{
				MediaSource: h.player.Source(),
				Position:    h.player.CurrentTime(),
				Playing:     !h.player.Paused(),
			}
			if err := h.publish(ctx, snap); err != nil {
				h.logger.Warn("heartbeat publish failed",
					zap.Float64("position", snap.Position),
					zap.Error(err))
			}
		}
	}
}
