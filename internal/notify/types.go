package notify

import "time"

// Service is a configured Shoutrrr destination. Stored in the
// notification_settings table.
type Service struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	ServiceType      string    `json:"service_type"`
	ConfigJSON       string    `json:"config_json"`
	Enabled          bool      `json:"enabled"`
	NotifyOnCritical bool      `json:"notify_on_critical"`
	NotifyOnWarning  bool      `json:"notify_on_warning"`
	NotifyOnInfo     bool      `json:"notify_on_info"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EventRule controls per-event-type notification behaviour for a service.
type EventRule struct {
	ID        int64  `json:"id"`
	ServiceID int64  `json:"service_id"`
	EventType string `json:"event_type"`
	Enabled   bool   `json:"enabled"`
	Cooldown  int    `json:"cooldown_secs"` // minimum seconds between repeated alerts
}

// Record is a row from notification_history.
type Record struct {
	ID           int64     `json:"id"`
	SettingID    int64     `json:"setting_id"`
	EventType    string    `json:"event_type"`
	DeviceIP     string    `json:"device_ip"`
	Model        string    `json:"model"`
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SentAt       time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
