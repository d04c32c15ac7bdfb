package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"driverdock/internal/models"
)

// isSecureRequest checks if the request came over HTTPS (directly or via reverse proxy)
func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	return strings.EqualFold(proto, "https")
}

// Status returns authentication status.
func (m *Manager) Status(w http.ResponseWriter, r *http.Request) {
	session := m.GetSessionFromRequest(r)

	var username string
	if session != nil {
		username = session.Username
	}

	jsonResponse(w, map[string]interface{}{
		"auth_enabled":  m.cfg.AuthEnabled,
		"authenticated": session != nil,
		"username":      username,
	})
}

// Login handles user authentication.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request) {
	if !m.cfg.AuthEnabled {
		jsonResponse(w, map[string]interface{}{
			"success": true,
			"message": "Authentication disabled",
		})
		return
	}

	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		jsonError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var user models.User
	err := m.conn.QueryRow(
		"SELECT id, username, password_hash FROM users WHERE username = ?",
		creds.Username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash)

	if err != nil || !CheckPassword(user.PasswordHash, creds.Password) {
		jsonError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := m.CreateSession(user.ID)
	if err != nil {
		jsonError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})

	log.Printf("🔓 Login: %s", user.Username)
	jsonResponse(w, map[string]interface{}{
		"success":  true,
		"token":    token,
		"username": user.Username,
	})
}

// Logout handles user logout.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) {
	session := m.GetSessionFromRequest(r)
	if session != nil {
		m.DeleteSession(session.Token)
		log.Printf("🔒 Logout: %s", session.Username)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})

	jsonResponse(w, map[string]string{"status": "logged_out"})
}

// ChangePassword handles password changes for the logged-in user.
func (m *Manager) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r)
	if session == nil {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if len(req.NewPassword) < 6 {
		jsonError(w, "Password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	var currentHash string
	m.conn.QueryRow("SELECT password_hash FROM users WHERE id = ?", session.UserID).Scan(&currentHash)
	if !CheckPassword(currentHash, req.CurrentPassword) {
		jsonError(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	newHash, err := HashPassword(req.NewPassword)
	if err != nil {
		jsonError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if _, err := m.conn.Exec(
		"UPDATE users SET password_hash = ? WHERE id = ?",
		newHash, session.UserID,
	); err != nil {
		jsonError(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	log.Printf("🔑 Password changed: %s", session.Username)
	jsonResponse(w, map[string]string{"status": "password_changed"})
}

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("⚠️  Failed to encode JSON response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
