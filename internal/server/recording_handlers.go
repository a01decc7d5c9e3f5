package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shadowplay/internal/audio"
	"shadowplay/internal/export"
	"shadowplay/internal/recorder"
)

const defaultWaveformWidth = 200

// handleRecordStart opens a capture session tagged with the segment under
// the playhead.
func (ps *PracticeServer) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}

	seg, ok := ps.engine.ActiveSegment()
	if !ok {
		ps.respondError(w, r, http.StatusConflict, "No active segment to record against", nil)
		return
	}

	if err := ps.recorder.Start(seg.ID); err != nil {
		if errors.Is(err, recorder.ErrPermissionDenied) {
			ps.respondError(w, r, http.StatusForbidden, "Microphone access denied", err)
			return
		}
		ps.respondError(w, r, http.StatusInternalServerError, "Could not start recording", err)
		return
	}
	ps.respondJSON(w, map[string]string{
		"status":    "recording",
		"segmentId": seg.ID,
	})
}

// handleRecordStop closes the session, files the clip, and persists it.
func (ps *PracticeServer) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}

	clip, err := ps.recorder.Stop()
	if err != nil {
		ps.respondError(w, r, http.StatusInternalServerError, "Could not stop recording", err)
		return
	}
	if clip == nil {
		ps.respondJSON(w, map[string]string{"status": "idle"})
		return
	}

	ps.mu.Lock()
	material := ps.material
	ps.mu.Unlock()
	if material != nil {
		if err := ps.store.SaveRecording(material.ID, clip.SegmentID, clip.Data, clip.Duration); err != nil {
			ps.logger.WithError(err).WithField("segment", clip.SegmentID).Warn("Could not persist recording")
		}
	}
	ps.respondJSON(w, clip)
}

// handleRecordingByID serves GET /api/recordings/{segmentID} as a WAV
// download and DELETE to discard the clip.
func (ps *PracticeServer) handleRecordingByID(w http.ResponseWriter, r *http.Request) {
	segmentID := strings.TrimPrefix(r.URL.Path, "/api/recordings/")
	if segmentID == "" || strings.Contains(segmentID, "/") {
		ps.respondError(w, r, http.StatusBadRequest, "Missing recording id", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		clip := ps.recorder.Get(segmentID)
		if clip == nil {
			ps.respondError(w, r, http.StatusNotFound, "No recording for segment", nil)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Length", strconv.Itoa(len(clip.Data)))
		w.Write(clip.Data)

	case http.MethodDelete:
		ps.recorder.Delete(segmentID)
		if err := ps.store.DeleteRecording(segmentID); err != nil {
			ps.logger.WithError(err).WithField("segment", segmentID).Warn("Could not delete persisted recording")
		}
		ps.respondJSON(w, map[string]string{"status": "deleted"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSegmentWaveform renders the reference waveform for one segment of the
// loaded track. Returns centered zero columns while the track is still
// decoding or could not be decoded.
func (ps *PracticeServer) handleSegmentWaveform(w http.ResponseWriter, r *http.Request) {
	segmentID := r.URL.Query().Get("segment")
	if segmentID == "" {
		ps.respondError(w, r, http.StatusBadRequest, "Missing segment parameter", nil)
		return
	}
	width := waveformWidth(r)

	ps.mu.Lock()
	material := ps.material
	ps.mu.Unlock()
	if material == nil {
		ps.respondError(w, r, http.StatusConflict, "No material loaded", nil)
		return
	}
	idx := material.SegmentByID(segmentID)
	if idx < 0 {
		ps.respondError(w, r, http.StatusNotFound, "Unknown segment", nil)
		return
	}

	buf := ps.segmentBuffer(material.Segments[idx])
	ps.respondJSON(w, map[string]interface{}{
		"segmentId": segmentID,
		"available": buf != nil,
		"columns":   audio.RenderWaveform(buf, width),
	})
}

// handleRecordingWaveform renders the user's clip for side-by-side
// comparison with the reference.
func (ps *PracticeServer) handleRecordingWaveform(w http.ResponseWriter, r *http.Request) {
	segmentID := r.URL.Query().Get("segment")
	if segmentID == "" {
		ps.respondError(w, r, http.StatusBadRequest, "Missing segment parameter", nil)
		return
	}
	width := waveformWidth(r)

	clip := ps.recorder.Get(segmentID)
	if clip == nil {
		ps.respondError(w, r, http.StatusNotFound, "No recording for segment", nil)
		return
	}
	ps.respondJSON(w, map[string]interface{}{
		"segmentId": segmentID,
		"available": clip.Buffer != nil,
		"duration":  clip.Duration,
		"columns":   audio.RenderWaveform(clip.Buffer, width),
	})
}

// handleExport concatenates the practiced clips into a single WAV in the
// configured export directory.
func (ps *PracticeServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}

	ps.mu.Lock()
	material := ps.material
	ps.mu.Unlock()
	if material == nil {
		ps.respondError(w, r, http.StatusConflict, "No material loaded", nil)
		return
	}

	name := fmt.Sprintf("%s-%s.wav", sanitizeFilename(material.Title), time.Now().Format("20060102-150405"))
	outPath := filepath.Join(ps.config.Export.OutputDir, name)

	err := ps.exporter.Export(material.Segments, ps.recorder, outPath)
	if err != nil {
		if errors.Is(err, export.ErrBusy) {
			ps.respondError(w, r, http.StatusConflict, "An export is already running", err)
			return
		}
		var expErr *export.ExportError
		if errors.As(err, &expErr) {
			ps.respondError(w, r, http.StatusUnprocessableEntity, expErr.Reason, expErr.Err)
			return
		}
		ps.respondError(w, r, http.StatusInternalServerError, "Export failed", err)
		return
	}
	ps.respondJSON(w, map[string]string{
		"status": "exported",
		"path":   outPath,
		"file":   name,
	})
}

func waveformWidth(r *http.Request) int {
	width := defaultWaveformWidth
	if s := r.URL.Query().Get("width"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 2000 {
			width = n
		}
	}
	return width
}

// sanitizeFilename keeps export names filesystem-safe.
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "practice"
	}
	return b.String()
}
