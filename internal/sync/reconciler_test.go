package sync

import (
	"testing"
)

// fakePlayer records the calls the reconciler makes.
type fakePlayer struct {
	source     string
	paused     bool
	position   float64
	seeks      []float64
	plays      int
	pauseCalls int
	setSources []string
}

func (f *fakePlayer) Play()  { f.plays++; f.paused = false }
func (f *fakePlayer) Pause() { f.pauseCalls++; f.paused = true }
func (f *fakePlayer) Seek(seconds float64) {
	f.seeks = append(f.seeks, seconds)
	f.position = seconds
}
func (f *fakePlayer) CurrentTime() float64 { return f.position }
func (f *fakePlayer) Paused() bool         { return f.paused }
func (f *fakePlayer) Source() string       { return f.source }
func (f *fakePlayer) SetSource(uri string) {
	f.setSources = append(f.setSources, uri)
	f.source = uri
	f.position = 0
}

func TestApplySeeksOnLargeDrift(t *testing.T) {
	p := &fakePlayer{source: "X", position: 10, paused: true}
	r := NewReconciler(p, 0, nil)

	r.Apply(Snapshot{MediaSource: "X", Position: 20, Playing: false})

	if len(p.seeks) != 1 || p.seeks[0] != 20 {
		t.Fatalf("expected one seek to 20, got %v", p.seeks)
	}
}

func TestApplyToleratesSmallDrift(t *testing.T) {
	p := &fakePlayer{source: "X", position: 10, paused: true}
	r := NewReconciler(p, 0, nil)

	r.Apply(Snapshot{MediaSource: "X", Position: 11.5, Playing: false})

	if len(p.seeks) != 0 {
		t.Fatalf("expected no seek for drift under threshold, got %v", p.seeks)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	p := &fakePlayer{source: "X", position: 30, paused: false}
	r := NewReconciler(p, 0, nil)
	snap := Snapshot{MediaSource: "X", Position: 35, Playing: true}

	r.Apply(snap)
	if len(p.seeks) != 1 {
		t.Fatalf("expected one seek, got %d", len(p.seeks))
	}

	// Same snapshot again: local position now matches, no further seek,
	// no redundant play call.
	r.Apply(snap)
	if len(p.seeks) != 1 {
		t.Fatalf("expected no additional seek, got %d", len(p.seeks))
	}
	if p.plays != 0 {
		t.Fatalf("player already playing, expected no play calls, got %d", p.plays)
	}
}

func TestApplyReconcilesPlayState(t *testing.T) {
	p := &fakePlayer{source: "X", position: 5, paused: true}
	r := NewReconciler(p, 0, nil)

	r.Apply(Snapshot{MediaSource: "X", Position: 5, Playing: true})
	if p.plays != 1 {
		t.Fatalf("expected play call, got %d", p.plays)
	}

	r.Apply(Snapshot{MediaSource: "X", Position: 5, Playing: false})
	if p.pauseCalls != 1 {
		t.Fatalf("expected pause call, got %d", p.pauseCalls)
	}
}

func TestApplyPlayStateIndependentOfDrift(t *testing.T) {
	// Drift inside threshold must not suppress the play-state fix.
	p := &fakePlayer{source: "X", position: 10, paused: true}
	r := NewReconciler(p, 0, nil)

	r.Apply(Snapshot{MediaSource: "X", Position: 10.5, Playing: true})

	if len(p.seeks) != 0 {
		t.Fatalf("expected no seek, got %v", p.seeks)
	}
	if p.plays != 1 {
		t.Fatalf("expected play call despite tolerated drift, got %d", p.plays)
	}
}

func TestApplyReloadsOnSourceChange(t *testing.T) {
	// Player far into media "X"; host switched to "Y" at position 3. The
	// reload must not be treated as drift: seek goes straight to the remote
	// position regardless of the old local position.
	p := &fakePlayer{source: "X", position: 500, paused: false}
	r := NewReconciler(p, 0, nil)

	r.Apply(Snapshot{MediaSource: "Y", Position: 3, Playing: true})

	if len(p.setSources) != 1 || p.setSources[0] != "Y" {
		t.Fatalf("expected reload to Y, got %v", p.setSources)
	}
	if len(p.seeks) != 1 || p.seeks[0] != 3 {
		t.Fatalf("expected baseline seek to 3, got %v", p.seeks)
	}

	// Next reconciliation against the same source is back to normal drift
	// rules: no penalty for the jump that the reload caused.
	r.Apply(Snapshot{MediaSource: "Y", Position: 3.5, Playing: true})
	if len(p.seeks) != 1 {
		t.Fatalf("expected no extra seek after reload, got %v", p.seeks)
	}
}

func TestApplyIgnoresEmptySource(t *testing.T) {
	p := &fakePlayer{source: "X", position: 0, paused: true}
	r := NewReconciler(p, 0, nil)

	r.Apply(Snapshot{MediaSource: "", Position: 0, Playing: false})

	if len(p.setSources) != 0 {
		t.Fatalf("empty remote source must not reload the player, got %v", p.setSources)
	}
}

func TestLastApplied(t *testing.T) {
	p := &fakePlayer{source: "X", paused: true}
	r := NewReconciler(p, 0, nil)

	if !r.LastApplied().IsZero() {
		t.Fatal("expected zero time before first snapshot")
	}
	r.Apply(Snapshot{MediaSource: "X"})
	if r.LastApplied().IsZero() {
		t.Fatal("expected LastApplied to be set after Apply")
	}
}
