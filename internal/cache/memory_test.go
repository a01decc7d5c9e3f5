package cache

import (
	"testing"
	"time"

	"shadowplay/internal/audio"
)

func TestMemory(t *testing.T) {
	t.Run("SetGetDelete", func(t *testing.T) {
		c := NewMemory(time.Minute)
		c.Set("k", 42)
		if v, ok := c.Get("k"); !ok || v.(int) != 42 {
			t.Errorf("Expected 42, got %v ok=%v", v, ok)
		}
		c.Delete("k")
		if _, ok := c.Get("k"); ok {
			t.Error("Expected key gone after delete")
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		c := NewMemory(10 * time.Millisecond)
		c.Set("k", "v")
		time.Sleep(25 * time.Millisecond)
		if _, ok := c.Get("k"); ok {
			t.Error("Expected entry expired")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		c := NewMemory(time.Minute)
		c.Set("a", 1)
		c.Set("b", 2)
		c.Clear()
		if c.Size() != 0 {
			t.Errorf("Expected empty cache, got %d items", c.Size())
		}
	})
}

func TestBufferCache(t *testing.T) {
	bc := NewBufferCache()
	buf := &audio.Buffer{SampleRate: 8000, Channels: [][]float64{{0.1, 0.2}}}

	t.Run("SegmentKeyedByGeneration", func(t *testing.T) {
		bc.SetSegmentBuffer("s1", 1, buf)
		if got, ok := bc.GetSegmentBuffer("s1", 1); !ok || got != buf {
			t.Error("Expected hit for same (segment, generation)")
		}
		if _, ok := bc.GetSegmentBuffer("s1", 2); ok {
			t.Error("Expected miss after generation bump")
		}
	})

	t.Run("TrackBuffer", func(t *testing.T) {
		bc.SetTrackBuffer("m1", buf)
		if got, ok := bc.GetTrackBuffer("m1"); !ok || got != buf {
			t.Error("Expected track buffer hit")
		}
		if _, ok := bc.GetTrackBuffer("m2"); ok {
			t.Error("Expected miss for unknown material")
		}
	})
}
