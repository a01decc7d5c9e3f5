// Package recorder captures microphone audio for the active segment and
// keeps the per-segment clip store used by waveform comparison and export.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"shadowplay/internal/audio"

	"github.com/sirupsen/logrus"
)

// ErrPermissionDenied is returned when the user declines microphone access.
// It must reach the caller and leave recording state untouched.
var ErrPermissionDenied = errors.New("microphone permission denied")

// Device is the microphone capture capability. Begin acquires an exclusive
// session; implementations return ErrPermissionDenied (possibly wrapped)
// when access is refused.
type Device interface {
	Begin() (Session, error)
}

// Session is one open capture. Stop releases the device and returns the
// accumulated audio as a playable WAV blob.
type Session interface {
	Stop() ([]byte, error)
}

// Player is the playback side of the mutual-exclusion invariant: starting a
// recording pauses it first.
type Player interface {
	Pause()
}

// Clip is a finished recording for one segment.
type Clip struct {
	SegmentID  string        `json:"segmentId"`
	Data       []byte        `json:"-"`
	Buffer     *audio.Buffer `json:"-"` // decoded for display; nil if decode failed
	Duration   float64       `json:"duration"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// Recorder owns the capture session and the segment-id → clip store.
// Entries are removed only by explicit Delete, never evicted.
type Recorder struct {
	device Device
	player Player
	logger *logrus.Logger

	mu        sync.Mutex
	clips     map[string]*Clip
	session   Session
	sessionID string // segment id captured at Start time
}

// New creates a recorder backed by the given capture device.
func New(device Device, player Player, logger *logrus.Logger) *Recorder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Recorder{
		device: device,
		player: player,
		logger: logger,
		clips:  make(map[string]*Clip),
	}
}

// Start opens a capture session tagged with segmentID. Playback is paused
// before the device is touched. A Start while a session is already open is
// ignored rather than queued.
func (r *Recorder) Start(segmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return nil
	}
	if segmentID == "" {
		return fmt.Errorf("recording needs an active segment")
	}
	if r.device == nil {
		return fmt.Errorf("no capture device configured")
	}

	// Playback and capture are mutually exclusive.
	if r.player != nil {
		r.player.Pause()
	}

	session, err := r.device.Begin()
	if err != nil {
		r.logger.WithError(err).WithField("segment", segmentID).Warn("Could not open capture session")
		return err
	}

	r.session = session
	r.sessionID = segmentID
	r.logger.WithField("segment", segmentID).Info("Recording started")
	return nil
}

// Stop closes the open session, assembles the clip, and files it under the
// segment id that was active when recording started. A Stop with no open
// session is a no-op.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, nil
	}
	session, segmentID := r.session, r.sessionID
	r.session = nil
	r.sessionID = ""

	data, err := session.Stop()
	if err != nil {
		r.logger.WithError(err).WithField("segment", segmentID).Error("Capture session failed")
		return nil, fmt.Errorf("stop capture: %w", err)
	}

	clip := &Clip{
		SegmentID:  segmentID,
		Data:       data,
		RecordedAt: time.Now(),
	}
	// Decode for waveform display; failure degrades to no waveform.
	if buf, err := audio.DecodeBytes(data); err != nil {
		r.logger.WithError(err).WithField("segment", segmentID).Warn("Recorded clip not decodable for display")
	} else {
		clip.Buffer = buf
		clip.Duration = buf.Duration()
	}

	r.clips[segmentID] = clip
	r.logger.WithFields(logrus.Fields{
		"segment":  segmentID,
		"bytes":    len(data),
		"duration": clip.Duration,
	}).Info("Recording stored")
	return clip, nil
}

// Restore files a previously persisted clip without opening a capture
// session, used when reloading a saved practice session.
func (r *Recorder) Restore(segmentID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clip := &Clip{
		SegmentID:  segmentID,
		Data:       data,
		RecordedAt: time.Now(),
	}
	if buf, err := audio.DecodeBytes(data); err == nil {
		clip.Buffer = buf
		clip.Duration = buf.Duration()
	}
	r.clips[segmentID] = clip
}

// Recording reports the open session's segment id, if any. While it returns
// true the active segment must not change, or the clip would be mis-tagged.
func (r *Recorder) Recording() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID, r.session != nil
}

// Has reports whether a clip exists for the segment.
func (r *Recorder) Has(segmentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clips[segmentID]
	return ok
}

// Get returns the clip for a segment, or nil.
func (r *Recorder) Get(segmentID string) *Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clips[segmentID]
}

// Delete removes one segment's clip; other entries are untouched.
func (r *Recorder) Delete(segmentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clips, segmentID)
}

// Clear drops every clip (material switch).
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clips = make(map[string]*Clip)
}

// Count returns the number of stored clips.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clips)
}
