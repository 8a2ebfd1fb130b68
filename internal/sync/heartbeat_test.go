package sync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHeartbeatPublishesPlayerState(t *testing.T) {
	p := &fakePlayer{source: "X", position: 42, paused: false}
	got := make(chan Snapshot, 8)
	publish := func(ctx context.Context, s Snapshot) error {
		got <- s
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hb := NewHeartbeat(p, publish, 5*time.Millisecond, nil)
	go hb.Run(ctx)

	select {
	case s := <-got:
		if s.Position != 42 || !s.Playing || s.MediaSource != "X" {
			t.Fatalf("unexpected snapshot: %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat published")
	}
}

func TestHeartbeatStopsOnCancel(t *testing.T) {
	p := &fakePlayer{source: "X", paused: true}
	got := make(chan Snapshot, 64)
	publish := func(ctx context.Context, s Snapshot) error {
		got <- s
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	hb := NewHeartbeat(p, publish, 5*time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		hb.Run(ctx)
		close(done)
	}()

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("no heartbeat before cancel")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not stop after cancel")
	}
}

func TestHeartbeatKeepsTickingAfterPublishError(t *testing.T) {
	p := &fakePlayer{source: "X", paused: true}
	calls := make(chan struct{}, 8)
	publish := func(ctx context.Context, s Snapshot) error {
		calls <- struct{}{}
		return errors.New("store unavailable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hb := NewHeartbeat(p, publish, 5*time.Millisecond, nil)
	go hb.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatalf("heartbeat stopped after %d publish attempts", i)
		}
	}
}

func TestHeartbeatDefaultInterval(t *testing.T) {
	hb := NewHeartbeat(&fakePlayer{}, func(context.Context, Snapshot) error { return nil }, 0, nil)
	if hb.interval != DefaultHeartbeatInterval {
		t.Fatalf("expected default interval %v, got %v", DefaultHeartbeatInterval, hb.interval)
	}
}
