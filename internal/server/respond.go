package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// respondJSON writes v as a JSON response.
func (ps *PracticeServer) respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ps.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondError sends a structured error response and logs it.
func (ps *PracticeServer) respondError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	entry := ps.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if statusCode >= 500 {
		entry.Error("Server error")
	} else {
		entry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	json.NewEncoder(w).Encode(body)
}

// requireMethod replies 405 and returns false when the method mismatches.
func (ps *PracticeServer) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
