package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"shadowplay/internal/auth"
	"shadowplay/internal/materials"
	"shadowplay/pkg/models"
)

// handleHome serves the SPA index file from the configured static dir.
func (ps *PracticeServer) handleHome(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(ps.config.Server.StaticDir, "index.html"))
}

// handleHealthCheck responds with basic liveness info.
func (ps *PracticeServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ps.respondJSON(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// handleLogin trades the access code for a session cookie.
func (ps *PracticeServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if !ps.gate.Enabled() {
		ps.respondJSON(w, map[string]string{"status": "open"})
		return
	}

	var req struct {
		AccessCode string `json:"accessCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ps.respondError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	sessionID, ok := ps.gate.Login(req.AccessCode)
	if !ok {
		ps.respondError(w, r, http.StatusUnauthorized, "Invalid access code", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	ps.respondJSON(w, map[string]string{"status": "ok"})
}

// handleListMaterials returns the catalog view.
func (ps *PracticeServer) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	list, err := ps.store.ListMaterials()
	if err != nil {
		ps.respondError(w, r, http.StatusInternalServerError, "Error retrieving materials", err)
		return
	}
	if list == nil {
		list = []models.Material{}
	}
	ps.respondJSON(w, list)
}

// handleMaterialByID routes /api/materials/{id}[/select].
func (ps *PracticeServer) handleMaterialByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/materials/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		ps.respondError(w, r, http.StatusBadRequest, "Missing material id", nil)
		return
	}

	if len(parts) > 1 && parts[1] == "select" {
		ps.handleSelectMaterial(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		m, err := ps.store.GetMaterial(id)
		if err != nil {
			ps.respondError(w, r, http.StatusNotFound, "Material not found", err)
			return
		}
		ps.respondJSON(w, m)

	case http.MethodDelete:
		if err := ps.store.DeleteMaterial(id); err != nil {
			ps.respondError(w, r, http.StatusInternalServerError, "Error deleting material", err)
			return
		}
		ps.respondJSON(w, map[string]string{"status": "deleted"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSelectMaterial loads a material into the engine as the active one.
func (ps *PracticeServer) handleSelectMaterial(w http.ResponseWriter, r *http.Request, id string) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if _, recording := ps.recorder.Recording(); recording {
		ps.respondError(w, r, http.StatusConflict, "Stop recording before switching materials", nil)
		return
	}

	m, err := ps.store.GetMaterial(id)
	if err != nil {
		ps.respondError(w, r, http.StatusNotFound, "Material not found", err)
		return
	}

	ps.loadMaterial(m)
	ps.respondJSON(w, map[string]interface{}{
		"status":   "selected",
		"material": m,
		"state":    ps.engine.State(),
	})
}

// handleImportText runs the import wizard backend: raw transcript text in,
// material with estimated timings out.
func (ps *PracticeServer) handleImportText(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Title         string  `json:"title"`
		Text          string  `json:"text"`
		AudioDuration float64 `json:"audioDuration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ps.respondError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	m, err := materials.ImportText(req.Title, req.Text, req.AudioDuration)
	if err != nil {
		ps.respondError(w, r, http.StatusBadRequest, "Import failed", err)
		return
	}
	if err := ps.store.SaveMaterial(m); err != nil {
		ps.respondError(w, r, http.StatusInternalServerError, "Error saving material", err)
		return
	}
	ps.respondJSON(w, m)
}

// handleGenerateMaterial produces a material from a topic prompt.
func (ps *PracticeServer) handleGenerateMaterial(w http.ResponseWriter, r *http.Request) {
	if !ps.requireMethod(w, r, http.MethodPost) {
		return
	}
	if ps.generator == nil {
		ps.respondError(w, r, http.StatusServiceUnavailable, "Generator is disabled", nil)
		return
	}

	var req struct {
		Topic      string `json:"topic"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ps.respondError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	m, err := ps.generator.Generate(r.Context(), req.Topic, req.Difficulty)
	if err != nil {
		ps.respondError(w, r, http.StatusBadGateway, "Generation failed", err)
		return
	}
	if err := ps.store.SaveMaterial(m); err != nil {
		ps.respondError(w, r, http.StatusInternalServerError, "Error saving material", err)
		return
	}
	ps.respondJSON(w, m)
}
