// Package export concatenates the user's practiced recordings into one
// playable WAV file, in transcript order.
package export

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"shadowplay/internal/audio"
	"shadowplay/internal/recorder"
	"shadowplay/pkg/models"
)

// ExportError reports a failed export. The whole operation aborts: either
// the user gets the complete set or a clear failure, never a silently
// truncated file.
type ExportError struct {
	Reason string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("export: %s", e.Reason)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ErrBusy is returned while another export is still in flight.
var ErrBusy = errors.New("export already in progress")

const exportBitDepth = 16

// ClipStore is the recording side of the pipeline; *recorder.Recorder
// satisfies it.
type ClipStore interface {
	Get(segmentID string) *recorder.Clip
}

// Exporter serializes export runs: overlapping requests are rejected instead
// of racing over the clip store.
type Exporter struct {
	logger *logrus.Logger

	mu       sync.Mutex
	inFlight bool
}

// New creates an exporter.
func New(logger *logrus.Logger) *Exporter {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Exporter{logger: logger}
}

// Export merges the clips recorded for segments, in segment order, into a
// single 16-bit linear-PCM WAV at outPath. Segments without a recording are
// skipped; a zero-clip selection or any undecodable clip aborts with
// ExportError and no file is left behind.
func (e *Exporter) Export(segments []models.Segment, clips ClipStore, outPath string) error {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return ErrBusy
	}
	e.inFlight = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	merged, order, err := e.mergeClips(segments, clips)
	if err != nil {
		return err
	}

	if err := writeWAVAtomic(outPath, merged); err != nil {
		return &ExportError{Reason: "write output", Err: err}
	}

	e.logger.WithFields(logrus.Fields{
		"clips":       len(order),
		"segments":    order,
		"sample_rate": merged.SampleRate,
		"channels":    merged.NumChannels(),
		"path":        outPath,
	}).Info("Export complete")
	return nil
}

// mergeClips decodes every recorded clip in transcript order, conforms each
// to the first clip's rate and channel count, and concatenates them.
func (e *Exporter) mergeClips(segments []models.Segment, clips ClipStore) (*audio.Buffer, []string, error) {
	var (
		merged *audio.Buffer
		order  []string
	)
	for _, seg := range segments {
		clip := clips.Get(seg.ID)
		if clip == nil {
			continue // only the sentences the user practiced
		}

		buf, err := audio.DecodeBytes(clip.Data)
		if err != nil {
			return nil, nil, &ExportError{Reason: fmt.Sprintf("clip %s undecodable", seg.ID), Err: err}
		}

		if merged == nil {
			// First decodable clip fixes the canonical output format.
			merged = &audio.Buffer{
				SampleRate: buf.SampleRate,
				Channels:   make([][]float64, buf.NumChannels()),
			}
		}
		buf = audio.Conform(buf, merged.SampleRate, merged.NumChannels())
		for ch := range merged.Channels {
			merged.Channels[ch] = append(merged.Channels[ch], buf.Channels[ch]...)
		}
		order = append(order, seg.ID)
	}

	if merged == nil {
		return nil, nil, &ExportError{Reason: "no recorded clips to export"}
	}
	return merged, order, nil
}

// writeWAVAtomic serializes buf as 16-bit PCM WAV, writing to a temp file in
// the target directory and renaming on success so a failure never leaves a
// partial output at outPath.
func writeWAVAtomic(outPath string, buf *audio.Buffer) error {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".export-*.wav")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	enc := wav.NewEncoder(tmp, buf.SampleRate, exportBitDepth, buf.NumChannels(), 1)
	if err := enc.Write(interleave(buf)); err != nil {
		cleanup()
		return err
	}
	if err := enc.Close(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// interleave converts channel-major floats to the interleaved int frames the
// WAV encoder wants, clamping to the 16-bit range.
func interleave(buf *audio.Buffer) *goaudio.IntBuffer {
	channels := buf.NumChannels()
	frames := buf.NumFrames()
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := buf.Channels[ch][i]
			if math.IsNaN(s) {
				s = 0
			}
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			data[i*channels+ch] = int(math.Round(s * 32767))
		}
	}
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: exportBitDepth,
	}
}
