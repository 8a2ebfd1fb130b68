// Package player provides LocalMediaPlayer implementations. The real decode
// and render path is outside this system; the simulated player stands in for
// it by advancing a wall-clock position while playing.
package player

import (
	gosync "sync"
	"time"
)

// Simulated is a clock-driven media player. Position advances in real time
// while playing; Seek and SetSource behave like an instant-loading element.
// Safe for concurrent use.
type Simulated struct {
	mu        gosync.Mutex
	source    string
	paused    bool
	position  float64
	resumedAt time.Time
}

// NewSimulated creates a paused player at position 0 with the given source.
func NewSimulated(source string) *Simulated {
	return &Simulated{source: source, paused: true}
}

// currentLocked returns the live position. Callers hold mu.
func (p *Simulated) currentLocked() float64 {
	if p.paused {
		return p.position
	}
	return p.position + time.Since(p.resumedAt).Seconds()
}

// Play resumes playback.
func (p *Simulated) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	p.resumedAt = time.Now()
}

// Pause freezes the position.
func (p *Simulated) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	p.position = p.currentLocked()
	p.paused = true
}

// Seek jumps to an absolute position in seconds.
func (p *Simulated) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	p.position = seconds
	p.resumedAt = time.Now()
}

// CurrentTime returns the playback position in seconds.
func (p *Simulated) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

// Paused reports whether playback is paused.
func (p *Simulated) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Source returns the current media URI.
func (p *Simulated) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// SetSource loads a new media URI. Position resets and playback pauses, as
// a real element would after a source swap before the next play call.
func (p *Simulated) SetSource(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = uri
	p.position = 0
	p.paused = true
}
