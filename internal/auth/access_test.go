package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGate(t *testing.T) {
	t.Run("DisabledGateAllowsEverything", func(t *testing.T) {
		g, err := NewGate("", nil)
		if err != nil {
			t.Fatalf("NewGate failed: %v", err)
		}
		if g.Enabled() {
			t.Error("Expected gate disabled with empty code")
		}
		if !g.Allow(httptest.NewRequest("GET", "/api/materials", nil)) {
			t.Error("Expected disabled gate to allow requests")
		}
		if _, ok := g.Login("anything"); ok {
			t.Error("Expected login to fail on a disabled gate")
		}
	})

	t.Run("LoginIssuesSession", func(t *testing.T) {
		g, err := NewGate("open-sesame", nil)
		if err != nil {
			t.Fatalf("NewGate failed: %v", err)
		}

		if _, ok := g.Login("wrong"); ok {
			t.Error("Expected wrong code rejected")
		}

		id, ok := g.Login("open-sesame")
		if !ok || id == "" {
			t.Fatal("Expected session id for correct code")
		}
		if !g.Valid(id) {
			t.Error("Expected issued session to be valid")
		}
		if g.Valid("forged-id") {
			t.Error("Expected unknown session rejected")
		}
	})

	t.Run("AllowChecksCookie", func(t *testing.T) {
		g, _ := NewGate("secret", nil)
		id, _ := g.Login("secret")

		bare := httptest.NewRequest("GET", "/api/materials", nil)
		if g.Allow(bare) {
			t.Error("Expected request without cookie rejected")
		}

		withCookie := httptest.NewRequest("GET", "/api/materials", nil)
		withCookie.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
		if !g.Allow(withCookie) {
			t.Error("Expected request with a live session allowed")
		}

		forged := httptest.NewRequest("GET", "/api/materials", nil)
		forged.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged"})
		if g.Allow(forged) {
			t.Error("Expected forged session rejected")
		}
	})
}
