package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"driverdock/internal/db"
	"driverdock/internal/models"
)

func setupManager(t *testing.T, enabled bool) *Manager {
	t.Helper()
	conn, err := db.Init(":memory:")
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	m := NewManager(conn, models.Config{
		AuthEnabled: enabled,
		AdminUser:   "admin",
		AdminPass:   "hunter22",
	})
	m.CreateDefaultAdmin()
	return m
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "secret") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestLoginAndSessionRoundtrip(t *testing.T) {
	m := setupManager(t, true)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "hunter22"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	m.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.Token == "" {
		t.Fatalf("login response = %+v", resp)
	}

	session := m.GetSession(resp.Token)
	if session == nil || session.Username != "admin" {
		t.Errorf("session = %+v, want admin session", session)
	}

	m.DeleteSession(resp.Token)
	if m.GetSession(resp.Token) != nil {
		t.Error("session survived deletion")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	m := setupManager(t, true)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "nope"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	m.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareBlocksWithoutSession(t *testing.T) {
	m := setupManager(t, true)

	called := false
	h := m.Middleware(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/scan", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if called {
		t.Error("protected handler ran without a session")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	m := setupManager(t, true)

	token, _, err := m.CreateSession(1)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	called := false
	h := m.Middleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if s := GetSessionFromContext(r); s == nil || s.Username != "admin" {
			t.Errorf("context session = %+v", s)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/scan", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h(rec, req)

	if !called {
		t.Errorf("protected handler not called, status %d", rec.Code)
	}
}

func TestMiddlewarePassthroughWhenDisabled(t *testing.T) {
	m := setupManager(t, false)

	called := false
	h := m.Middleware(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/scan", nil)
	h(httptest.NewRecorder(), req)

	if !called {
		t.Error("handler blocked while auth is disabled")
	}
}
