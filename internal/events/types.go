package events

import "time"

// EventType identifies the kind of event being published.
type EventType string

const (
	// Provisioning events
	InstallStarted    EventType = "install_started"
	InstallStep       EventType = "install_step"
	InstallSucceeded  EventType = "install_succeeded"
	InstallFailed     EventType = "install_failed"
	InstallRedirected EventType = "install_redirected"
	ModelUnresolved   EventType = "model_unresolved"

	// Inventory events
	ScanIngested EventType = "scan_ingested"

	// System events
	PluginOnline  EventType = "plugin_online"
	PluginMissing EventType = "plugin_missing"
)

// Severity indicates the urgency of an event.
type Severity int

const (
	SeverityInfo     Severity = 0
	SeverityWarning  Severity = 1
	SeverityCritical Severity = 2
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Event is the payload published through the bus.
type Event struct {
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	DeviceIP  string            `json:"device_ip,omitempty"`
	Model     string            `json:"model,omitempty"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
