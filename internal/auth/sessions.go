// Package auth provides cookie-session authentication for the dashboard.
package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"driverdock/internal/models"
)

const sessionTTL = 24 * time.Hour * 7

// Manager owns users and sessions. The database handle is passed in
// explicitly; there is no package-level connection.
type Manager struct {
	conn *sql.DB
	cfg  models.Config
}

// NewManager creates an auth manager backed by the given database.
func NewManager(conn *sql.DB, cfg models.Config) *Manager {
	return &Manager{conn: conn, cfg: cfg}
}

// Enabled reports whether authentication is turned on.
func (m *Manager) Enabled() bool { return m.cfg.AuthEnabled }

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken creates a secure random token.
func GenerateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// GetSession retrieves an unexpired session by token, or nil.
func (m *Manager) GetSession(token string) *models.Session {
	if token == "" {
		return nil
	}

	var session models.Session
	var expiresAt string

	err := m.conn.QueryRow(`
		SELECT s.token, s.user_id, u.username, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > datetime('now')
	`, token).Scan(&session.Token, &session.UserID, &session.Username, &expiresAt)

	if err != nil {
		return nil
	}

	session.ExpiresAt, _ = time.Parse("2006-01-02 15:04:05", expiresAt)
	return &session
}

// CreateSession creates a new session for a user.
func (m *Manager) CreateSession(userID int) (string, time.Time, error) {
	token := GenerateToken()
	expiresAt := time.Now().Add(sessionTTL)

	_, err := m.conn.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC().Format("2006-01-02 15:04:05"),
	)
	return token, expiresAt, err
}

// DeleteSession removes a session.
func (m *Manager) DeleteSession(token string) {
	m.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
}

// CleanupExpiredSessions removes expired sessions from the database.
func (m *Manager) CleanupExpiredSessions() {
	m.conn.Exec("DELETE FROM sessions WHERE expires_at < datetime('now')")
}

// CreateDefaultAdmin creates the initial admin user if none exists.
func (m *Manager) CreateDefaultAdmin() {
	var count int
	m.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if count > 0 {
		return
	}

	password := m.cfg.AdminPass
	if password == "" {
		password = GenerateToken()[:12]
		log.Printf("🔑 Generated admin password: %s", password)
		log.Printf("   Set ADMIN_PASS environment variable to use a custom password")
	}

	hash, err := HashPassword(password)
	if err != nil {
		log.Printf("⚠️  Could not hash admin password: %v", err)
		return
	}

	_, err = m.conn.Exec(
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		m.cfg.AdminUser, hash,
	)
	if err != nil {
		log.Printf("⚠️  Could not create admin user: %v", err)
	} else {
		log.Printf("✓ Created admin user: %s", m.cfg.AdminUser)
	}
}
