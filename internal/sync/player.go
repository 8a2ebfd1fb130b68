// Package sync keeps a local media player aligned with host-published
// playback state. The host side runs a fixed-interval heartbeat publisher;
// the viewer side applies incoming snapshots to the local player.
package sync

const (
	// DriftThresholdSeconds is the max tolerated gap between local and
	// remote position before a viewer hard-seeks. Small divergence is left
	// alone to avoid visible seek jitter on every update.
	DriftThresholdSeconds = 2.0
)

// Player is the local media element the synchronizer drives. Implementations
// must keep playback errors local; they are never written to shared state.
type Player interface {
	Play()
	Pause()
	Seek(seconds float64)
	CurrentTime() float64
	Paused() bool
	Source() string
	SetSource(uri string)
}

// Snapshot is the host-published playback state for one party.
type Snapshot struct {
	MediaSource string  `json:"media_source"`
	Position    float64 `json:"position"`
	Playing     bool    `json:"playing"`
}
