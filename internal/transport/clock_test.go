package transport

import (
	"errors"
	"math"
	"testing"
)

func TestTimer(t *testing.T) {
	t.Run("DefaultDuration", func(t *testing.T) {
		c := NewTimer(0)
		if c.Duration() != DefaultSimulatedDuration {
			t.Errorf("Expected fallback duration %.1f, got %.1f", DefaultSimulatedDuration, c.Duration())
		}
		c = NewTimer(-5)
		if c.Duration() != DefaultSimulatedDuration {
			t.Errorf("Expected fallback duration for negative input, got %.1f", c.Duration())
		}
	})

	t.Run("SeekClampsToTrack", func(t *testing.T) {
		c := NewTimer(30)
		c.Seek(-10)
		if c.CurrentTime() != 0 {
			t.Errorf("Expected clamp to 0, got %.2f", c.CurrentTime())
		}
		c.Seek(100)
		if c.CurrentTime() != 30 {
			t.Errorf("Expected clamp to duration, got %.2f", c.CurrentTime())
		}
	})

	t.Run("PositionHoldsWhilePaused", func(t *testing.T) {
		c := NewTimer(30)
		c.Seek(12.5)
		if c.Playing() {
			t.Error("Expected timer to start paused")
		}
		if c.CurrentTime() != 12.5 {
			t.Errorf("Expected paused position 12.5, got %.2f", c.CurrentTime())
		}
	})

	t.Run("PlayAdvancesFromPosition", func(t *testing.T) {
		c := NewTimer(30)
		c.Seek(10)
		if err := c.Play(); err != nil {
			t.Fatalf("Play failed: %v", err)
		}
		if !c.Playing() {
			t.Error("Expected playing after Play")
		}
		// Immediately after Play the elapsed time is still ~10s.
		if got := c.CurrentTime(); math.Abs(got-10) > 0.5 {
			t.Errorf("Expected position near 10, got %.2f", got)
		}
		c.Pause()
		if c.Playing() {
			t.Error("Expected paused after Pause")
		}
	})

	t.Run("SeekWhilePlaying", func(t *testing.T) {
		c := NewTimer(30)
		if err := c.Play(); err != nil {
			t.Fatalf("Play failed: %v", err)
		}
		c.Seek(20)
		if got := c.CurrentTime(); math.Abs(got-20) > 0.5 {
			t.Errorf("Expected position near 20 after seek, got %.2f", got)
		}
	})
}

type stubTransport struct {
	position float64
	duration float64
	playErr  error
	playing  bool
	closed   bool
}

func (s *stubTransport) Play() error {
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	return nil
}
func (s *stubTransport) Pause()         { s.playing = false }
func (s *stubTransport) Seek(t float64) { s.position = t }
func (s *stubTransport) Position() float64 {
	return s.position
}
func (s *stubTransport) Duration() float64 { return s.duration }
func (s *stubTransport) Close() error {
	s.closed = true
	return nil
}

func TestMedia(t *testing.T) {
	t.Run("SeekClampsToTransportDuration", func(t *testing.T) {
		st := &stubTransport{duration: 45}
		c := NewMedia(st)
		c.Seek(100)
		if st.position != 45 {
			t.Errorf("Expected clamp to 45, got %.2f", st.position)
		}
		c.Seek(-3)
		if st.position != 0 {
			t.Errorf("Expected clamp to 0, got %.2f", st.position)
		}
	})

	t.Run("SeekUnclampedWhileDurationUnknown", func(t *testing.T) {
		// Duration 0 means metadata has not loaded yet; only the lower
		// bound applies.
		st := &stubTransport{duration: 0}
		c := NewMedia(st)
		c.Seek(17)
		if st.position != 17 {
			t.Errorf("Expected unclamped seek to 17, got %.2f", st.position)
		}
	})

	t.Run("PlayErrorWrapped", func(t *testing.T) {
		wantErr := errors.New("no sink")
		c := NewMedia(&stubTransport{playErr: wantErr})

		err := c.Play()
		var pErr *PlaybackError
		if !errors.As(err, &pErr) {
			t.Fatalf("Expected PlaybackError, got %v", err)
		}
		if !errors.Is(err, wantErr) {
			t.Error("Expected wrapped cause to survive unwrapping")
		}
		if c.Playing() {
			t.Error("Expected not playing after failed Play")
		}
	})

	t.Run("CloseReleasesTransport", func(t *testing.T) {
		st := &stubTransport{duration: 10}
		c := NewMedia(st)
		if err := c.Play(); err != nil {
			t.Fatalf("Play failed: %v", err)
		}
		c.Close()
		if st.playing {
			t.Error("Expected transport paused on close")
		}
		if !st.closed {
			t.Error("Expected transport closed")
		}
	})
}
