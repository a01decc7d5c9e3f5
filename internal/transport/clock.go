// Package transport provides the playback time source for the engine. Two
// implementations sit behind one Clock interface: a Media clock wrapping a
// real playback transport, and a Timer clock that simulates playback for
// materials with no audio track. The rest of the engine never knows which
// one it is driving.
package transport

import (
	"fmt"
	"sync"
	"time"
)

// Clock is the engine-facing time signal. CurrentTime must be cheap: the
// boundary scheduler polls it every tick.
type Clock interface {
	CurrentTime() float64
	Duration() float64
	Play() error
	Pause()
	Seek(t float64)
	Playing() bool
	Close()
}

// PlaybackError wraps an underlying media failure to start.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback: %v", e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// DefaultSimulatedDuration is used when a material has no segments to define
// a track length from.
const DefaultSimulatedDuration = 60.0

func clamp(t, duration float64) float64 {
	if t < 0 {
		return 0
	}
	if duration > 0 && t > duration {
		return duration
	}
	return t
}

// Timer simulates playback with a wall-clock epoch: while playing,
// CurrentTime is the monotonic elapsed time since Play (offset by seeks),
// clamped to the configured duration. Seek rewrites the epoch so elapsed
// time lands on the target.
type Timer struct {
	mu       sync.Mutex
	duration float64
	position float64   // authoritative while paused
	epoch    time.Time // position zero-point while playing
	playing  bool
}

// NewTimer creates a simulated clock for a track of the given length.
// Non-positive durations fall back to DefaultSimulatedDuration.
func NewTimer(duration float64) *Timer {
	if duration <= 0 {
		duration = DefaultSimulatedDuration
	}
	return &Timer{duration: duration}
}

func (c *Timer) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Timer) positionLocked() float64 {
	if !c.playing {
		return c.position
	}
	return clamp(time.Since(c.epoch).Seconds(), c.duration)
}

func (c *Timer) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *Timer) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return nil
	}
	c.epoch = time.Now().Add(-time.Duration(c.position * float64(time.Second)))
	c.playing = true
	return nil
}

func (c *Timer) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.position = c.positionLocked()
	c.playing = false
}

func (c *Timer) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t = clamp(t, c.duration)
	if c.playing {
		c.epoch = time.Now().Add(-time.Duration(t * float64(time.Second)))
		return
	}
	c.position = t
}

func (c *Timer) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Timer) Close() {
	c.Pause()
}

// Transport is the platform playback capability for a real audio track:
// native position, native seek, duration known once metadata loads (0 until
// then).
type Transport interface {
	Play() error
	Pause()
	Seek(t float64)
	Position() float64
	Duration() float64
	Close() error
}

// Media adapts a Transport to the Clock interface, adding seek clamping and
// play/pause bookkeeping.
type Media struct {
	mu      sync.Mutex
	t       Transport
	playing bool
}

// NewMedia wraps a platform transport.
func NewMedia(t Transport) *Media {
	return &Media{t: t}
}

func (c *Media) CurrentTime() float64 {
	return c.t.Position()
}

func (c *Media) Duration() float64 {
	return c.t.Duration()
}

func (c *Media) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return nil
	}
	if err := c.t.Play(); err != nil {
		return &PlaybackError{Err: err}
	}
	c.playing = true
	return nil
}

func (c *Media) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.t.Pause()
	c.playing = false
}

func (c *Media) Seek(t float64) {
	c.t.Seek(clamp(t, c.t.Duration()))
}

func (c *Media) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Media) Close() {
	c.Pause()
	c.t.Close()
}
