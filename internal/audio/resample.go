package audio

// Conform returns a copy of buf converted to the given sample rate and channel
// count. Rate conversion is linear interpolation, which is adequate for voice
// recordings; channel conversion averages down to mono or duplicates up.
// Returns buf unchanged when it already matches.
func Conform(buf *Buffer, rate, channels int) *Buffer {
	if buf == nil || rate <= 0 || channels <= 0 {
		return nil
	}
	if buf.SampleRate == rate && buf.NumChannels() == channels {
		return buf
	}

	out := buf
	if out.NumChannels() != channels {
		out = remixChannels(out, channels)
	}
	if out.SampleRate != rate {
		out = resampleLinear(out, rate)
	}
	return out
}

func remixChannels(buf *Buffer, channels int) *Buffer {
	frames := buf.NumFrames()
	out := &Buffer{SampleRate: buf.SampleRate, Channels: make([][]float64, channels)}

	if channels == 1 {
		// Mixdown: average all source channels.
		mono := make([]float64, frames)
		for _, ch := range buf.Channels {
			for i, s := range ch {
				mono[i] += s
			}
		}
		n := float64(buf.NumChannels())
		for i := range mono {
			mono[i] /= n
		}
		out.Channels[0] = mono
		return out
	}

	for ch := 0; ch < channels; ch++ {
		src := buf.Channels[ch%buf.NumChannels()]
		dup := make([]float64, frames)
		copy(dup, src)
		out.Channels[ch] = dup
	}
	return out
}

func resampleLinear(buf *Buffer, rate int) *Buffer {
	srcFrames := buf.NumFrames()
	dstFrames := int(float64(srcFrames) * float64(rate) / float64(buf.SampleRate))
	if dstFrames < 1 {
		dstFrames = 1
	}

	ratio := float64(buf.SampleRate) / float64(rate)
	out := &Buffer{SampleRate: rate, Channels: make([][]float64, len(buf.Channels))}
	for ch, src := range buf.Channels {
		dst := make([]float64, dstFrames)
		for i := range dst {
			pos := float64(i) * ratio
			lo := int(pos)
			if lo >= srcFrames-1 {
				dst[i] = src[srcFrames-1]
				continue
			}
			frac := pos - float64(lo)
			dst[i] = src[lo]*(1-frac) + src[lo+1]*frac
		}
		out.Channels[ch] = dst
	}
	return out
}
