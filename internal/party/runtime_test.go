package party

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/couchparty/backend/internal/models"
)

type fakePlayer struct {
	mu      gosync.Mutex
	source  string
	pos     float64
	paused  bool
	seeks   []float64
	sources []string
}

func (f *fakePlayer) Play()  { f.mu.Lock(); f.paused = false; f.mu.Unlock() }
func (f *fakePlayer) Pause() { f.mu.Lock(); f.paused = true; f.mu.Unlock() }
func (f *fakePlayer) Seek(s float64) {
	f.mu.Lock()
	f.pos = s
	f.seeks = append(f.seeks, s)
	f.mu.Unlock()
}
func (f *fakePlayer) CurrentTime() float64 { f.mu.Lock(); defer f.mu.Unlock(); return f.pos }
func (f *fakePlayer) Paused() bool         { f.mu.Lock(); defer f.mu.Unlock(); return f.paused }
func (f *fakePlayer) Source() string       { f.mu.Lock(); defer f.mu.Unlock(); return f.source }
func (f *fakePlayer) SetSource(uri string) {
	f.mu.Lock()
	f.source = uri
	f.sources = append(f.sources, uri)
	f.pos = 0
	f.mu.Unlock()
}
func (f *fakePlayer) seekCount() int { f.mu.Lock(); defer f.mu.Unlock(); return len(f.seeks) }

type fakePublisher struct {
	mu    gosync.Mutex
	calls int
}

func (f *fakePublisher) PublishState(ctx context.Context, partyID uuid.UUID, position float64, playing bool) (*models.Party, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &models.Party{ID: partyID, CurrentPosition: position, IsPlaying: playing}, nil
}

func (f *fakePublisher) count() int { f.mu.Lock(); defer f.mu.Unlock(); return f.calls }

func activeParty(hostID uuid.UUID, source string, pos float64, playing bool) models.Party {
	return models.Party{
		ID:              uuid.New(),
		HostID:          hostID,
		MediaSource:     source,
		CurrentPosition: pos,
		IsPlaying:       playing,
		Status:          models.PartyStatusActive,
	}
}

func TestViewerReconcilesState(t *testing.T) {
	self := uuid.New()
	host := uuid.New()
	player := &fakePlayer{source: "movie.mp4", pos: 10, paused: true}
	rt := NewRuntime(self, uuid.New(), player, &fakePublisher{}, nil)
	defer rt.Close()

	rt.HandleState(activeParty(host, "movie.mp4", 100, true))

	if got := rt.Role(); got != RoleViewer {
		t.Fatalf("Role() = %v, want viewer", got)
	}
	if player.CurrentTime() != 100 {
		t.Fatalf("position = %v, want 100", player.CurrentTime())
	}
	if player.Paused() {
		t.Fatal("player should be playing after reconcile")
	}
}

func TestViewerToleratesSmallDrift(t *testing.T) {
	self := uuid.New()
	host := uuid.New()
	player := &fakePlayer{source: "movie.mp4", pos: 50.5, paused: false}
	rt := NewRuntime(self, uuid.New(), player, &fakePublisher{}, nil)
	defer rt.Close()

	rt.HandleState(activeParty(host, "movie.mp4", 50, true))

	if n := player.seekCount(); n != 0 {
		t.Fatalf("seeks = %d, want 0 for drift inside threshold", n)
	}
}

func TestHostPublishesAndNeverReconciles(t *testing.T) {
	self := uuid.New()
	player := &fakePlayer{source: "movie.mp4", pos: 10, paused: false}
	pub := &fakePublisher{}
	rt := NewRuntime(self, uuid.New(), player, pub, nil)
	rt.HeartbeatInterval = 10 * time.Millisecond
	defer rt.Close()

	// Remote position is far off; the host's own player must win.
	rt.HandleState(activeParty(self, "movie.mp4", 500, true))

	if got := rt.Role(); got != RoleHost {
		t.Fatalf("Role() = %v, want host", got)
	}
	if n := player.seekCount(); n != 0 {
		t.Fatalf("seeks = %d, host player must not be reconciled", n)
	}

	deadline := time.After(time.Second)
	for pub.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("heartbeat published %d times, want >= 2", pub.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestViewerStopsHeartbeatOnDemotion(t *testing.T) {
	self := uuid.New()
	other := uuid.New()
	player := &fakePlayer{source: "movie.mp4"}
	pub := &fakePublisher{}
	rt := NewRuntime(self, uuid.New(), player, pub, nil)
	rt.HeartbeatInterval = 10 * time.Millisecond
	defer rt.Close()

	rt.HandleState(activeParty(self, "movie.mp4", 0, false))
	rt.HandleState(activeParty(other, "movie.mp4", 0, false))

	if got := rt.Role(); got != RoleViewer {
		t.Fatalf("Role() = %v, want viewer", got)
	}
	time.Sleep(30 * time.Millisecond)
	before := pub.count()
	time.Sleep(50 * time.Millisecond)
	if after := pub.count(); after != before {
		t.Fatalf("heartbeat still publishing after demotion: %d -> %d", before, after)
	}
}

func TestEndedPartyFreezesRuntime(t *testing.T) {
	self := uuid.New()
	host := uuid.New()
	player := &fakePlayer{source: "movie.mp4", pos: 10, paused: false}
	rt := NewRuntime(self, uuid.New(), player, &fakePublisher{}, nil)
	defer rt.Close()

	ended := activeParty(host, "movie.mp4", 10, true)
	ended.Status = models.PartyStatusEnded
	rt.HandleState(ended)

	if !rt.Ended() {
		t.Fatal("Ended() = false after ended snapshot")
	}
	if !player.Paused() {
		t.Fatal("player should pause when the party ends")
	}

	// Further snapshots are ignored once ended.
	rt.HandleState(activeParty(host, "movie.mp4", 900, true))
	if n := player.seekCount(); n != 0 {
		t.Fatalf("seeks = %d after end, want 0", n)
	}
}
