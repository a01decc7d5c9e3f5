package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// DecodeError reports that a byte source could not be decoded to PCM. Decode
// failures on the visualization path are non-fatal: callers degrade to "no
// waveform" and playback continues.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errUnsupportedFormat = errors.New("unsupported audio format")

// SniffFormat inspects magic bytes and returns "wav", "flac", "mp3" or "".
func SniffFormat(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return "flac"
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	default:
		return ""
	}
}

// DecodeBytes decodes a byte blob into a channel-major sample buffer. MP3 is
// recognized but not decodable to PCM here; it reports a DecodeError so the
// caller can degrade.
func DecodeBytes(data []byte) (*Buffer, error) {
	switch format := SniffFormat(data); format {
	case "wav":
		return decodeWAV(bytes.NewReader(data))
	case "flac":
		return decodeFLAC(bytes.NewReader(data))
	case "mp3":
		return nil, &DecodeError{Format: "mp3", Err: errUnsupportedFormat}
	default:
		return nil, &DecodeError{Format: "unknown", Err: errUnsupportedFormat}
	}
}

// DecodeFile decodes an audio file into a sample buffer, dispatching on the
// file extension the same way the duration probe does.
func DecodeFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Format: formatForPath(path), Err: err}
	}
	defer f.Close()

	switch formatForPath(path) {
	case "wav":
		return decodeWAV(f)
	case "flac":
		return decodeFLAC(f)
	case "mp3":
		return nil, &DecodeError{Format: "mp3", Err: errUnsupportedFormat}
	default:
		return nil, &DecodeError{Format: formatForPath(path), Err: errUnsupportedFormat}
	}
}

func formatForPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func decodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, &DecodeError{Format: "wav", Err: errors.New("invalid wav file")}
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Format: "wav", Err: err}
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 || pcm.Format.SampleRate <= 0 {
		return nil, &DecodeError{Format: "wav", Err: errors.New("invalid wav header")}
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	buf := &Buffer{SampleRate: pcm.Format.SampleRate, Channels: make([][]float64, channels)}
	for ch := 0; ch < channels; ch++ {
		buf.Channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			buf.Channels[ch][i] = float64(pcm.Data[i*channels+ch]) / scale
		}
	}
	return buf, nil
}

func decodeFLAC(r io.Reader) (*Buffer, error) {
	stream, err := flac.Parse(r)
	if err != nil {
		return nil, &DecodeError{Format: "flac", Err: err}
	}

	info := stream.Info
	if info.NChannels == 0 || info.SampleRate == 0 {
		return nil, &DecodeError{Format: "flac", Err: errors.New("flac stream missing sample info")}
	}
	scale := float64(int64(1) << (info.BitsPerSample - 1))

	buf := &Buffer{SampleRate: int(info.SampleRate), Channels: make([][]float64, info.NChannels)}
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &DecodeError{Format: "flac", Err: err}
		}
		for ch, sub := range frame.Subframes {
			for _, sample := range sub.Samples {
				buf.Channels[ch] = append(buf.Channels[ch], float64(sample)/scale)
			}
		}
	}
	return buf, nil
}

// ProbeDuration reports the playable length of an audio file in seconds
// without decoding it fully. MP3 walks frame headers, FLAC reads STREAMINFO,
// WAV estimates from header and file size.
func ProbeDuration(path string) (float64, error) {
	switch formatForPath(path) {
	case "mp3":
		return probeDurationMP3(path)
	case "flac":
		return probeDurationFLAC(path)
	case "wav":
		return probeDurationWAV(path)
	default:
		return 0, fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}
}

// MP3 duration by frame decoding; no usable fallback when no frame parses.
func probeDurationMP3(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return 0, fmt.Errorf("no decodable mp3 frames: %w", err)
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	return total.Seconds(), nil
}

// FLAC duration via STREAMINFO metadata block.
func probeDurationFLAC(path string) (float64, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		return float64(si.NSamples) / float64(si.SampleRate), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// WAV duration from header fields and file size; avoids decoding samples.
func probeDurationWAV(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerFrame <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	return float64(pcmBytes/bytesPerFrame) / float64(dec.SampleRate), nil
}
