package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"shadowplay/internal/audio"
	"shadowplay/internal/config"
	"shadowplay/internal/engine"
	"shadowplay/internal/store"
	"shadowplay/pkg/models"
)

func newTestServer(t *testing.T) *PracticeServer {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "test.db")
	cfg.Materials.LibraryPath = dir
	cfg.Recording.Backend = "none"
	cfg.Export.OutputDir = filepath.Join(dir, "exports")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ps, err := NewPracticeServer(cfg, st, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	t.Cleanup(ps.engine.Close)
	return ps
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestServerAPI(t *testing.T) {
	t.Run("HealthCheck", func(t *testing.T) {
		ps := newTestServer(t)
		rec := doJSON(t, ps.routes(), "GET", "/health", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("ImportSelectAndDrive", func(t *testing.T) {
		ps := newTestServer(t)
		mux := ps.routes()

		// Import a transcript.
		rec := doJSON(t, mux, "POST", "/api/materials/import", map[string]interface{}{
			"title": "Practice Run",
			"text":  "First sentence. Second sentence. Third sentence.",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("Import failed with %d: %s", rec.Code, rec.Body.String())
		}
		var m models.Material
		if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
			t.Fatalf("Bad import response: %v", err)
		}
		if len(m.Segments) != 3 {
			t.Fatalf("Expected 3 segments, got %d", len(m.Segments))
		}

		// The catalog lists it.
		rec = doJSON(t, mux, "GET", "/api/materials", nil)
		var list []models.Material
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("Bad list response: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("Expected 1 material, got %d", len(list))
		}

		// Select it; without audio the engine runs a simulated clock.
		rec = doJSON(t, mux, "POST", "/api/materials/"+m.ID+"/select", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Select failed with %d: %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, mux, "GET", "/api/player/state", nil)
		var st engine.State
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("Bad state response: %v", err)
		}
		if st.MaterialID != m.ID {
			t.Errorf("Expected material %s loaded, got %s", m.ID, st.MaterialID)
		}
		if st.IsPlaying {
			t.Error("Expected paused after load")
		}

		// Drive the player.
		rec = doJSON(t, mux, "POST", "/api/player/play", nil)
		json.Unmarshal(rec.Body.Bytes(), &st)
		if !st.IsPlaying {
			t.Error("Expected playing after play")
		}

		rec = doJSON(t, mux, "POST", "/api/player/mode", map[string]string{"mode": "sentence"})
		json.Unmarshal(rec.Body.Bytes(), &st)
		if st.PlayMode != models.PlayModeSentence {
			t.Errorf("Expected sentence mode, got %s", st.PlayMode)
		}

		rec = doJSON(t, mux, "POST", "/api/player/segment", map[string]int{"index": 1})
		json.Unmarshal(rec.Body.Bytes(), &st)
		if st.ActiveSegmentIndex != 1 {
			t.Errorf("Expected segment 1 selected, got %d", st.ActiveSegmentIndex)
		}

		rec = doJSON(t, mux, "POST", "/api/player/pause", nil)
		json.Unmarshal(rec.Body.Bytes(), &st)
		if st.IsPlaying {
			t.Error("Expected paused after pause")
		}
	})

	t.Run("ReselectUsesCachedTrackBuffer", func(t *testing.T) {
		ps := newTestServer(t)
		mux := ps.routes()

		// The audio path does not exist, so only the cached buffer can make
		// the waveform available.
		m := &models.Material{
			ID:        "mat-cached",
			Title:     "Cached Track",
			AudioPath: filepath.Join(t.TempDir(), "missing.wav"),
			Segments: []models.Segment{
				{ID: "seg-c1", Text: "One.", StartTime: 0, EndTime: 1.0},
			},
		}
		if err := ps.store.SaveMaterial(m); err != nil {
			t.Fatalf("SaveMaterial failed: %v", err)
		}
		buf := &audio.Buffer{
			SampleRate: 8000,
			Channels:   [][]float64{make([]float64, 8000)},
		}
		ps.bufCache.SetTrackBuffer(m.ID, buf)

		rec := doJSON(t, mux, "POST", "/api/materials/"+m.ID+"/select", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Select failed with %d: %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, mux, "GET", "/api/waveform/segment?segment=seg-c1&width=10", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Waveform request failed with %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Available bool `json:"available"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Bad waveform response: %v", err)
		}
		if !resp.Available {
			t.Error("Expected waveform served from the cached track buffer")
		}
	})

	t.Run("SeekValidation", func(t *testing.T) {
		ps := newTestServer(t)
		mux := ps.routes()
		rec := doJSON(t, mux, "POST", "/api/player/seek", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for empty seek, got %d", rec.Code)
		}
	})

	t.Run("BadPlayMode", func(t *testing.T) {
		ps := newTestServer(t)
		rec := doJSON(t, ps.routes(), "POST", "/api/player/mode", map[string]string{"mode": "shuffle"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for unknown mode, got %d", rec.Code)
		}
	})

	t.Run("RecordWithoutActiveSegment", func(t *testing.T) {
		ps := newTestServer(t)
		rec := doJSON(t, ps.routes(), "POST", "/api/recording/start", nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("Expected 409 with no active segment, got %d", rec.Code)
		}
	})

	t.Run("GenerateDisabled", func(t *testing.T) {
		ps := newTestServer(t)
		rec := doJSON(t, ps.routes(), "POST", "/api/materials/generate", map[string]string{"topic": "travel"})
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503 with generator disabled, got %d", rec.Code)
		}
	})

	t.Run("ExportWithoutMaterial", func(t *testing.T) {
		ps := newTestServer(t)
		rec := doJSON(t, ps.routes(), "POST", "/api/export", nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("Expected 409 without a loaded material, got %d", rec.Code)
		}
	})

	t.Run("MissingMaterial", func(t *testing.T) {
		ps := newTestServer(t)
		rec := doJSON(t, ps.routes(), "GET", "/api/materials/unknown-id", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for unknown material, got %d", rec.Code)
		}
	})

	t.Run("MethodGuards", func(t *testing.T) {
		ps := newTestServer(t)
		mux := ps.routes()
		for _, path := range []string{"/api/player/play", "/api/materials/import", "/api/export"} {
			rec := doJSON(t, mux, "GET", path, nil)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for GET %s, got %d", path, rec.Code)
			}
		}
	})
}
