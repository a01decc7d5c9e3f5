package audio

import (
	"math"
	"testing"
)

func TestRenderWaveform(t *testing.T) {
	t.Run("NilBufferRendersCenterline", func(t *testing.T) {
		cols := RenderWaveform(nil, 50)
		if len(cols) != 50 {
			t.Fatalf("Expected 50 columns, got %d", len(cols))
		}
		for i, c := range cols {
			if c.Min != 0 || c.Max != 0 {
				t.Fatalf("Expected flat column at %d, got %+v", i, c)
			}
		}
	})

	t.Run("CapturesPeaks", func(t *testing.T) {
		buf := &Buffer{SampleRate: 8000, Channels: [][]float64{make([]float64, 1000)}}
		buf.Channels[0][10] = 0.9
		buf.Channels[0][990] = -0.7

		cols := RenderWaveform(buf, 10)
		if len(cols) != 10 {
			t.Fatalf("Expected 10 columns, got %d", len(cols))
		}
		if cols[0].Max != 0.9 {
			t.Errorf("Expected first column max 0.9, got %.2f", cols[0].Max)
		}
		if cols[9].Min != -0.7 {
			t.Errorf("Expected last column min -0.7, got %.2f", cols[9].Min)
		}
	})

	t.Run("FewerSamplesThanColumns", func(t *testing.T) {
		buf := &Buffer{SampleRate: 8000, Channels: [][]float64{{0.5, -0.5, 0.25}}}
		cols := RenderWaveform(buf, 10)
		if len(cols) != 10 {
			t.Fatalf("Expected 10 columns, got %d", len(cols))
		}
		// Trailing columns past the data stay flat.
		for i := 3; i < 10; i++ {
			if cols[i].Min != 0 || cols[i].Max != 0 {
				t.Errorf("Expected flat trailing column %d, got %+v", i, cols[i])
			}
		}
	})

	t.Run("NonFiniteSamplesCollapse", func(t *testing.T) {
		buf := &Buffer{SampleRate: 8000, Channels: [][]float64{{math.NaN(), math.Inf(1), 0.5}}}
		cols := RenderWaveform(buf, 3)
		if cols[0].Min != 0 || cols[0].Max != 0 {
			t.Errorf("Expected NaN window to collapse to zero, got %+v", cols[0])
		}
		if cols[1].Min != 0 || cols[1].Max != 0 {
			t.Errorf("Expected Inf window to collapse to zero, got %+v", cols[1])
		}
		if cols[2].Max != 0.5 {
			t.Errorf("Expected finite window preserved, got %+v", cols[2])
		}
	})

	t.Run("ZeroWidth", func(t *testing.T) {
		if cols := RenderWaveform(nil, 0); cols != nil {
			t.Error("Expected nil for zero width")
		}
	})
}
