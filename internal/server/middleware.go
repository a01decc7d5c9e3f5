package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// responseWriter wraps http.ResponseWriter to capture status code & size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(data)
	rw.size += size
	return size, err
}

// requestLoggingMiddleware logs API requests with latency and size.
func (ps *PracticeServer) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(rw, r)

		if !ps.shouldLogRequest(r.URL.Path) {
			return
		}
		ps.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.statusCode,
			"bytes":    rw.size,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("Request")
	})
}

// corsMiddleware injects CORS headers if enabled in configuration.
func (ps *PracticeServer) corsMiddleware(next http.Handler) http.Handler {
	if !ps.config.Server.EnableCORS {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// gateMiddleware enforces the access-code session on API routes when the
// gate is enabled. Login, health, and static assets stay reachable.
func (ps *PracticeServer) gateMiddleware(next http.Handler) http.Handler {
	if !ps.gate.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if openPath(r.URL.Path) || ps.gate.Allow(r) {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func openPath(path string) bool {
	if path == "/" || path == "/health" || path == "/api/login" {
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

// shouldLogRequest filters noisy paths, most of all the player-state poll.
func (ps *PracticeServer) shouldLogRequest(path string) bool {
	skipPaths := []string{
		"/static/",
		"/favicon.ico",
		"/api/player/state",
		"/health",
	}
	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return false
		}
	}
	return true
}

// panicRecoveryMiddleware intercepts panics returning HTTP 500 without
// crashing the process.
func (ps *PracticeServer) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				ps.logger.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  err,
				}).Error("Panic in handler")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
