package transport

import (
	"sync"
	"time"
)

// TrackTransport is a Transport for a decoded local track. Position is driven
// by the same epoch arithmetic the Timer clock uses; the duration starts at 0
// and is published asynchronously once the track's metadata (or full decode)
// is available, matching how a native media element reports it.
type TrackTransport struct {
	mu       sync.Mutex
	duration float64
	position float64
	epoch    time.Time
	playing  bool
}

// NewTrackTransport creates a transport with an as-yet-unknown duration.
func NewTrackTransport() *TrackTransport {
	return &TrackTransport{}
}

// SetDuration publishes the track length once known. Safe to call while
// playing; an in-range position is preserved.
func (t *TrackTransport) SetDuration(d float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d > 0 {
		t.duration = d
	}
}

func (t *TrackTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		return nil
	}
	t.epoch = time.Now().Add(-time.Duration(t.position * float64(time.Second)))
	t.playing = true
	return nil
}

func (t *TrackTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return
	}
	t.position = t.positionLocked()
	t.playing = false
}

func (t *TrackTransport) Seek(sec float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		t.epoch = time.Now().Add(-time.Duration(sec * float64(time.Second)))
		return
	}
	t.position = sec
}

func (t *TrackTransport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *TrackTransport) positionLocked() float64 {
	if !t.playing {
		return t.position
	}
	pos := time.Since(t.epoch).Seconds()
	if t.duration > 0 && pos > t.duration {
		pos = t.duration
	}
	return pos
}

func (t *TrackTransport) Duration() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

func (t *TrackTransport) Close() error {
	t.Pause()
	return nil
}
