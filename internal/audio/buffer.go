package audio

import "math"

// Buffer holds decoded linear-PCM audio as channel-major float64 samples in
// the range [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float64
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// NumFrames returns the per-channel sample count.
func (b *Buffer) NumFrames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.NumFrames()) / float64(b.SampleRate)
}

// ExtractSegment copies the samples covering [startTime, endTime) out of src
// into a new buffer. Sample indices are floor(t * rate), computed per channel
// independently. Returns nil when the window is empty or starts past the end
// of the source; the source is never mutated or aliased.
func ExtractSegment(src *Buffer, startTime, endTime float64) *Buffer {
	if src == nil || src.SampleRate <= 0 || src.NumFrames() == 0 {
		return nil
	}

	startSample := int(math.Floor(startTime * float64(src.SampleRate)))
	endSample := int(math.Floor(endTime * float64(src.SampleRate)))
	if startSample < 0 {
		startSample = 0
	}

	total := src.NumFrames()
	if startSample >= total || endSample <= startSample {
		return nil
	}
	if endSample > total {
		endSample = total
	}

	out := &Buffer{
		SampleRate: src.SampleRate,
		Channels:   make([][]float64, len(src.Channels)),
	}
	for ch, samples := range src.Channels {
		window := make([]float64, endSample-startSample)
		copy(window, samples[startSample:endSample])
		out.Channels[ch] = window
	}
	return out
}
