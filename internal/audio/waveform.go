package audio

import "math"

// WaveformColumn is one rendered column: the windowed minimum and maximum
// sample value, both in [-1, 1].
type WaveformColumn struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RenderWaveform downsamples the first channel of buf into exactly width
// min/max columns for bar-style display. A nil or empty buffer renders as a
// flat centerline (all columns zero). Columns whose window falls past the end
// of the data, or that contain non-finite samples, collapse to zero amplitude.
func RenderWaveform(buf *Buffer, width int) []WaveformColumn {
	if width <= 0 {
		return nil
	}

	columns := make([]WaveformColumn, width)
	if buf == nil || buf.NumFrames() == 0 {
		return columns
	}

	samples := buf.Channels[0]
	step := (len(samples) + width - 1) / width

	for col := 0; col < width; col++ {
		lo := col * step
		if lo >= len(samples) {
			break
		}
		hi := lo + step
		if hi > len(samples) {
			hi = len(samples)
		}

		min, max := samples[lo], samples[lo]
		for _, s := range samples[lo:hi] {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		if math.IsNaN(min) || math.IsInf(min, 0) || math.IsNaN(max) || math.IsInf(max, 0) {
			continue
		}
		columns[col] = WaveformColumn{Min: min, Max: max}
	}
	return columns
}
