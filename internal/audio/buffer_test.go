package audio

import (
	"math"
	"testing"
)

func rampBuffer(rate, frames, channels int) *Buffer {
	buf := &Buffer{SampleRate: rate, Channels: make([][]float64, channels)}
	for ch := 0; ch < channels; ch++ {
		samples := make([]float64, frames)
		for i := range samples {
			samples[i] = float64(i) / float64(frames)
		}
		buf.Channels[ch] = samples
	}
	return buf
}

func TestExtractSegment(t *testing.T) {
	t.Run("WindowBySampleIndex", func(t *testing.T) {
		src := rampBuffer(48000, 48000*3, 2)
		seg := ExtractSegment(src, 1.0, 2.0)
		if seg == nil {
			t.Fatal("Expected a segment buffer")
		}
		if seg.NumFrames() != 48000 {
			t.Errorf("Expected 48000 frames for a 1s window, got %d", seg.NumFrames())
		}
		if seg.NumChannels() != 2 {
			t.Errorf("Expected 2 channels, got %d", seg.NumChannels())
		}
		if seg.SampleRate != 48000 {
			t.Errorf("Expected sample rate preserved, got %d", seg.SampleRate)
		}
		// First extracted sample is src sample 48000.
		want := src.Channels[0][48000]
		if seg.Channels[0][0] != want {
			t.Errorf("Expected first sample %.6f, got %.6f", want, seg.Channels[0][0])
		}
	})

	t.Run("CopiesNotAliases", func(t *testing.T) {
		src := rampBuffer(8000, 8000, 1)
		seg := ExtractSegment(src, 0.0, 0.5)
		seg.Channels[0][0] = 99
		if src.Channels[0][0] == 99 {
			t.Error("Expected extraction to copy, not alias, the source")
		}
	})

	t.Run("ClampsPastEnd", func(t *testing.T) {
		src := rampBuffer(8000, 8000, 1) // 1s of audio
		seg := ExtractSegment(src, 0.5, 5.0)
		if seg == nil {
			t.Fatal("Expected a segment buffer")
		}
		if seg.NumFrames() != 4000 {
			t.Errorf("Expected clamp to 4000 frames, got %d", seg.NumFrames())
		}
	})

	t.Run("EmptyWindows", func(t *testing.T) {
		src := rampBuffer(8000, 8000, 1)
		cases := []struct {
			name       string
			start, end float64
		}{
			{"StartPastEnd", 2.0, 3.0},
			{"Reversed", 0.8, 0.2},
			{"ZeroLength", 0.5, 0.5},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if seg := ExtractSegment(src, tc.start, tc.end); seg != nil {
					t.Errorf("Expected nil for window [%.1f, %.1f)", tc.start, tc.end)
				}
			})
		}
	})

	t.Run("NilSource", func(t *testing.T) {
		if seg := ExtractSegment(nil, 0, 1); seg != nil {
			t.Error("Expected nil for nil source")
		}
	})
}

func TestBufferDuration(t *testing.T) {
	buf := rampBuffer(16000, 8000, 1)
	if got := buf.Duration(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected 0.5s, got %.3f", got)
	}
	var nilBuf *Buffer
	if nilBuf.Duration() != 0 {
		t.Error("Expected 0 duration for nil buffer")
	}
	if nilBuf.NumChannels() != 0 || nilBuf.NumFrames() != 0 {
		t.Error("Expected zero shape for nil buffer")
	}
}
