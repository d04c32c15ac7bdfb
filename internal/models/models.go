package models

import (
	"encoding/json"
	"time"
)

// Device is one row of the device inventory, as reported by the network
// scan collaborator. Identity within a scan result set is the IP address.
type Device struct {
	IP          string `json:"ip"`
	Host        string `json:"host"`
	Model       string `json:"model"`
	Description string `json:"description"`
	Online      bool   `json:"online"`
	CanScan     bool   `json:"canScan"`
}

// ScanReport is the payload the scan collaborator posts after a sweep.
type ScanReport struct {
	Hostname  string    `json:"hostname"`
	Timestamp time.Time `json:"timestamp"`
	Items     []Device  `json:"items"`
}

// VariantMap maps an install variant to an installer artifact filename.
// Any subset of the three fields may be present in the catalog.
type VariantMap struct {
	Printer string `json:"printer,omitempty"`
	Scanner string `json:"scanner,omitempty"`
	All     string `json:"all,omitempty"`
}

// InstallRequest is the payload sent to the helper agent. Constructed
// fresh on every attempt, never cached.
type InstallRequest struct {
	IP          string `json:"ip"`
	Host        string `json:"host"`
	Model       string `json:"model"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
	Printer     bool   `json:"printer"`
	Scanner     bool   `json:"scanner"`
}

// InstallResult is the normalized outcome of a helper agent install call.
// Transport errors and non-2xx responses are folded into Success=false.
type InstallResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PluginStatus is the helper agent's answer to a status probe.
type PluginStatus struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
}

// InstallAttempt is a recorded provisioning attempt.
type InstallAttempt struct {
	ID         string    `json:"id"`
	DeviceIP   string    `json:"device_ip"`
	DeviceHost string    `json:"device_host"`
	Model      string    `json:"model"`
	Variant    string    `json:"variant"`
	Mode       string    `json:"mode"`   // plugin | download
	Status     string    `json:"status"` // started | succeeded | failed | redirected
	Error      string    `json:"error,omitempty"`
	// Steps holds the recorded progress step states as a JSON array.
	Steps      json.RawMessage `json:"steps,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
}

// ModelOverride is an operator-maintained correction applied to scan
// results: a known host gets its model/description pinned.
type ModelOverride struct {
	ID          int64     `json:"id"`
	Host        string    `json:"host"`
	Model       string    `json:"model"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// User represents an authenticated dashboard user
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents an active user session
type Session struct {
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Config holds server configuration
type Config struct {
	Port           string
	DBPath         string
	WebDir         string
	PublishDir     string
	CatalogSources []string
	ArtifactBases  []string
	PluginEnabled  bool
	PluginURL      string
	PluginPage     string
	AdminUser      string
	AdminPass      string
	AuthEnabled    bool
}
