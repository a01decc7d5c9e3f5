package server

import (
	"encoding/json"
	"net/http"

	"shadowplay/pkg/models"
)

// handlePlayerState returns the engine snapshot. Polled by the UI, so it is
// excluded from request logging.
func (ps *PracticeServer) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if !ps.allowPlayback(w, r) {
		return
	}
	if err := ps.engine.Play(); err != nil {
		ps.respondError(w, r, http.StatusConflict, "Playback failed", err)
		return
	}
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handlePause(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	ps.engine.Pause()
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handleTogglePlay(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if !ps.allowPlayback(w, r) {
		return
	}
	if err := ps.engine.TogglePlay(); err != nil {
		ps.respondError(w, r, http.StatusConflict, "Playback failed", err)
		return
	}
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handleSkipNext(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if !ps.allowNavigation(w, r) {
		return
	}
	ps.engine.SkipNext()
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handleSkipPrev(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if !ps.allowNavigation(w, r) {
		return
	}
	ps.engine.SkipPrev()
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handleReplay(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if !ps.allowPlayback(w, r) {
		return
	}
	ps.engine.Replay()
	ps.respondJSON(w, ps.engine.State())
}

// handleSeek accepts either an absolute time or a signed delta.
func (ps *PracticeServer) handleSeek(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Time      *float64 `json:"time"`
		Delta     *float64 `json:"delta"`
		Direction string   `json:"direction"` // "forward" / "back", uses the configured step
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ps.respondError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	step := ps.config.Engine.SeekStepSeconds
	switch {
	case req.Time != nil:
		ps.engine.SeekTo(*req.Time)
	case req.Delta != nil:
		ps.engine.SeekBy(*req.Delta)
	case req.Direction == "forward":
		ps.engine.SeekBy(step)
	case req.Direction == "back":
		ps.engine.SeekBy(-step)
	default:
		ps.respondError(w, r, http.StatusBadRequest, "Provide time, delta, or direction", nil)
		return
	}
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handleSelectSegment(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if !ps.allowNavigation(w, r) {
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ps.respondError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	ps.engine.SelectSegment(req.Index)
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handleSetMode(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ps.respondError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	mode := models.PlayMode(req.Mode)
	if mode != models.PlayModeArticle && mode != models.PlayModeSentence {
		ps.respondError(w, r, http.StatusBadRequest, "Unknown play mode", nil)
		return
	}
	ps.engine.SetPlayMode(mode)
	ps.respondJSON(w, ps.engine.State())
}

// handleLoopTarget sets an explicit target, or cycles when no body field
// is given.
func (ps *PracticeServer) handleLoopTarget(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Target *int `json:"target"`
	}
	if r.Body != nil {
		// An empty body means cycle; tolerate decode errors for that case.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.Target != nil {
		if *req.Target < 0 {
			ps.respondError(w, r, http.StatusBadRequest, "Loop target must be >= 0", nil)
			return
		}
		ps.engine.SetLoopTarget(*req.Target)
	} else {
		ps.engine.CycleLoopTarget()
	}
	ps.respondJSON(w, ps.engine.State())
}

func (ps *PracticeServer) handleTextVisibility(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	ps.engine.CycleTextVisibility()
	ps.respondJSON(w, ps.engine.State())
}

// allowNavigation rejects segment navigation while a recording session is
// open, so a clip cannot end up tagged with the wrong segment.
func (ps *PracticeServer) allowNavigation(w http.ResponseWriter, r *http.Request) bool {
	if _, recording := ps.recorder.Recording(); recording {
		ps.respondError(w, r, http.StatusConflict, "Stop recording before navigating", nil)
		return false
	}
	return true
}

// allowPlayback rejects play requests while a recording session is open;
// playback and capture never run at the same time.
func (ps *PracticeServer) allowPlayback(w http.ResponseWriter, r *http.Request) bool {
	if _, recording := ps.recorder.Recording(); recording {
		ps.respondError(w, r, http.StatusConflict, "Stop recording before resuming playback", nil)
		return false
	}
	return true
}
