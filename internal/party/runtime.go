// Package party runs the client side of a watch party: it tracks this
// participant's role from incoming session state and drives the local player
// accordingly. Hosts publish heartbeats; viewers reconcile.
package party

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/models"
	"github.com/couchparty/backend/internal/sync"
)

// Role of this participant within the party.
type Role int

const (
	RoleViewer Role = iota
	RoleHost
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "viewer"
}

// StatePublisher writes the host's playback state to the server.
// *apiclient.Client satisfies it.
type StatePublisher interface {
	PublishState(ctx context.Context, partyID uuid.UUID, position float64, playing bool) (*models.Party, error)
}

// Runtime is the per-party client state machine. Feed it session state via
// HandleState; it derives the role from the party's host id on every
// snapshot and switches between publishing and reconciling. Close releases
// the heartbeat.
type Runtime struct {
	selfID  uuid.UUID
	partyID uuid.UUID
	player  sync.Player
	pub     StatePublisher
	logger  *zap.Logger

	// HeartbeatInterval overrides the publish cadence when positive.
	HeartbeatInterval time.Duration

	reconciler *sync.Reconciler

	mu       gosync.Mutex
	role     Role
	started  bool
	ended    bool
	hbCancel context.CancelFunc
}

// NewRuntime creates a runtime for one participant in one party.
func NewRuntime(selfID, partyID uuid.UUID, player sync.Player, pub StatePublisher, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		selfID:     selfID,
		partyID:    partyID,
		player:     player,
		pub:        pub,
		logger:     logger,
		reconciler: sync.NewReconciler(player, sync.DriftThresholdSeconds, logger),
	}
}

// HandleState processes one session state snapshot. Safe to call from the
// feed goroutine.
func (rt *Runtime) HandleState(p models.Party) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.ended {
		return
	}
	if p.Status == models.PartyStatusEnded {
		rt.ended = true
		rt.stopHeartbeatLocked()
		rt.player.Pause()
		rt.logger.Info("party ended", zap.String("party_id", rt.partyID.String()))
		return
	}

	role := RoleViewer
	if p.HostID == rt.selfID {
		role = RoleHost
	}
	if role != rt.role || !rt.started {
		rt.logger.Info("role resolved", zap.String("role", role.String()))
	}
	rt.role = role
	rt.started = true

	if role == RoleHost {
		// The host's player is the source of truth; never reconcile it
		// against its own published state.
		rt.startHeartbeatLocked()
		return
	}

	rt.stopHeartbeatLocked()
	rt.reconciler.Apply(sync.Snapshot{
		MediaSource: p.MediaSource,
		Position:    p.CurrentPosition,
		Playing:     p.IsPlaying,
	})
}

// Role returns the current role.
func (rt *Runtime) Role() Role {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.role
}

// Ended reports whether the party has ended.
func (rt *Runtime) Ended() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.ended
}

// LastApplied reports when the viewer last applied a snapshot, for staleness
// logging. Zero for hosts and before the first snapshot.
func (rt *Runtime) LastApplied() time.Time {
	return rt.reconciler.LastApplied()
}

// Close stops the heartbeat if one is running.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.stopHeartbeatLocked()
}

func (rt *Runtime) startHeartbeatLocked() {
	if rt.hbCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rt.hbCancel = cancel

	publish := func(ctx context.Context, s sync.Snapshot) error {
		_, err := rt.pub.PublishState(ctx, rt.partyID, s.Position, s.Playing)
		return err
	}
	hb := sync.NewHeartbeat(rt.player, publish, rt.HeartbeatInterval, rt.logger)
	go hb.Run(ctx)
}

func (rt *Runtime) stopHeartbeatLocked() {
	if rt.hbCancel != nil {
		rt.hbCancel()
		rt.hbCancel = nil
	}
}
