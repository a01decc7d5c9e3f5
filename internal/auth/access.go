// Package auth implements the optional access gate: one shared access code,
// bcrypt-hashed at startup, traded for a cookie session. Meant for use with
// the ngrok tunnel; with no access code configured the API is open.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie is the cookie carrying the session id.
const SessionCookie = "shadowplay_session"

const sessionTTL = 24 * time.Hour

// Gate validates access codes and tracks issued sessions.
type Gate struct {
	hash   []byte // nil when the gate is disabled
	logger *logrus.Logger

	mu       sync.RWMutex
	sessions map[string]time.Time // id -> expiry
}

// NewGate hashes the configured access code. An empty code disables the
// gate entirely.
func NewGate(accessCode string, logger *logrus.Logger) (*Gate, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	g := &Gate{
		logger:   logger,
		sessions: make(map[string]time.Time),
	}
	if accessCode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(accessCode), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		g.hash = hash
	}
	return g, nil
}

// Enabled reports whether requests must carry a valid session.
func (g *Gate) Enabled() bool {
	return g != nil && g.hash != nil
}

// Login checks the access code and returns a new session id.
func (g *Gate) Login(code string) (string, bool) {
	if !g.Enabled() {
		return "", false
	}
	if bcrypt.CompareHashAndPassword(g.hash, []byte(code)) != nil {
		g.logger.Warn("Rejected access code")
		return "", false
	}

	raw := make([]byte, 16)
	rand.Read(raw)
	id := hex.EncodeToString(raw)

	g.mu.Lock()
	g.sessions[id] = time.Now().Add(sessionTTL)
	g.mu.Unlock()
	return id, true
}

// Valid reports whether a session id is live.
func (g *Gate) Valid(id string) bool {
	g.mu.RLock()
	expiry, ok := g.sessions[id]
	g.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		g.mu.Lock()
		delete(g.sessions, id)
		g.mu.Unlock()
		return false
	}
	return true
}

// Allow reports whether the request may proceed.
func (g *Gate) Allow(r *http.Request) bool {
	if !g.Enabled() {
		return true
	}
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	return g.Valid(cookie.Value)
}
