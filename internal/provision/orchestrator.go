// Package provision drives install attempts end to end: capability
// selection, helper agent dispatch, and the legacy resolve-and-download
// fallback when no agent is in play.
package provision

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"driverdock/internal/capability"
	"driverdock/internal/catalog"
	"driverdock/internal/db"
	"driverdock/internal/events"
	"driverdock/internal/models"
)

var (
	// ErrInFlight means an attempt for the same device is already running.
	ErrInFlight = errors.New("install already in progress for device")
	// ErrNoModel means the device has no model to provision against.
	ErrNoModel = errors.New("device has no model")
	// ErrNoDevice means the request did not identify a device.
	ErrNoDevice = errors.New("device IP is required")
)

// Status classifies the outcome of a processed install attempt.
type Status string

const (
	StatusInstalled  Status = "installed"  // helper agent completed the install
	StatusFailed     Status = "failed"     // helper agent rejected or errored
	StatusRedirect   Status = "redirect"   // no helper agent; operator sent to its install page
	StatusDownload   Status = "download"   // legacy path produced a direct download link
	StatusUnresolved Status = "unresolved" // model not in the catalog
)

// Outcome is what an install attempt produced.
type Outcome struct {
	Status      Status `json:"status"`
	AttemptID   string `json:"attempt_id,omitempty"`
	Error       string `json:"error,omitempty"`
	Redirect    string `json:"redirect,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Steps       []Step `json:"steps,omitempty"`
}

// Resolver maps a reported model to a catalog entry.
type Resolver interface {
	Resolve(model string) (models.VariantMap, string, bool)
}

// ArtifactLocator turns an artifact filename into a download URL.
type ArtifactLocator interface {
	Locate(ctx context.Context, filename string) string
}

// Agent is the helper agent surface the orchestrator needs.
type Agent interface {
	Installed() bool
	InstallPage() string
	Install(ctx context.Context, r models.InstallRequest) models.InstallResult
}

// Orchestrator coordinates one install attempt at a time per device.
type Orchestrator struct {
	conn          *sql.DB
	catalog       Resolver
	locator       ArtifactLocator
	agent         Agent
	bus           *events.Bus
	pluginEnabled bool
	guard         *inflightGuard
}

// NewOrchestrator wires the provisioning pipeline. When pluginEnabled is
// false every attempt takes the legacy download path regardless of agent
// state.
func NewOrchestrator(conn *sql.DB, cat Resolver, loc ArtifactLocator, agent Agent, bus *events.Bus, pluginEnabled bool) *Orchestrator {
	return &Orchestrator{
		conn:          conn,
		catalog:       cat,
		locator:       loc,
		agent:         agent,
		bus:           bus,
		pluginEnabled: pluginEnabled,
		guard:         newInflightGuard(),
	}
}

// OnInstallRequested processes one operator install click. The selection
// is validated before any I/O; a second request for a device that is
// still being provisioned returns ErrInFlight.
func (o *Orchestrator) OnInstallRequested(ctx context.Context, device models.Device, sel capability.Selection) (Outcome, error) {
	variant, err := capability.Select(sel.Printer, sel.Scanner)
	if err != nil {
		return Outcome{}, err
	}
	if device.IP == "" {
		return Outcome{}, ErrNoDevice
	}
	if device.Model == "" {
		return Outcome{}, ErrNoModel
	}

	if !o.guard.tryAcquire(device.IP) {
		return Outcome{}, ErrInFlight
	}
	defer o.guard.release(device.IP)

	log.Printf("🖨️ Install requested: %s (%s) variant=%s", device.IP, device.Model, variant)

	if o.pluginEnabled {
		if !o.agent.Installed() {
			return o.redirectToAgentSetup(device, variant)
		}
		return o.installViaAgent(ctx, device, sel, variant), nil
	}
	return o.legacyDownload(ctx, device, variant), nil
}

// redirectToAgentSetup records the attempt and points the operator at
// the helper agent install page.
func (o *Orchestrator) redirectToAgentSetup(device models.Device, variant capability.Variant) (Outcome, error) {
	attempt := o.newAttempt(device, variant, "plugin")
	if err := db.RecordAttempt(o.conn, attempt); err != nil {
		return Outcome{}, err
	}
	if err := db.FinishAttempt(o.conn, attempt.ID, "redirected", ""); err != nil {
		log.Printf("⚠️ Failed to finalize attempt %s: %v", attempt.ID, err)
	}

	o.bus.Publish(events.Event{
		Type:     events.PluginMissing,
		Severity: events.SeverityWarning,
		DeviceIP: device.IP,
		Model:    device.Model,
		Message:  "Helper agent not detected, operator redirected to setup",
		Metadata: map[string]string{"attempt_id": attempt.ID},
	})
	o.bus.Publish(events.Event{
		Type:     events.InstallRedirected,
		Severity: events.SeverityInfo,
		DeviceIP: device.IP,
		Model:    device.Model,
		Message:  "Install deferred until helper agent is set up",
		Metadata: map[string]string{"attempt_id": attempt.ID},
	})

	return Outcome{
		Status:    StatusRedirect,
		AttemptID: attempt.ID,
		Redirect:  o.agent.InstallPage(),
	}, nil
}

// installViaAgent runs the four-step install through the helper agent.
// The request payload is built fresh from the current device row and
// selection; nothing is reused from earlier attempts.
func (o *Orchestrator) installViaAgent(ctx context.Context, device models.Device, sel capability.Selection, variant capability.Variant) Outcome {
	attempt := o.newAttempt(device, variant, "plugin")
	if err := db.RecordAttempt(o.conn, attempt); err != nil {
		return Outcome{Status: StatusFailed, Error: err.Error()}
	}

	progress := NewProgress()
	o.bus.Publish(events.Event{
		Type:     events.InstallStarted,
		Severity: events.SeverityInfo,
		DeviceIP: device.IP,
		Model:    device.Model,
		Message:  fmt.Sprintf("Installing %s drivers on %s", variant, device.IP),
		Metadata: map[string]string{"attempt_id": attempt.ID, "variant": string(variant)},
	})
	if step, ok := progress.Current(); ok {
		o.publishStep(attempt.ID, device, step)
	}

	result := o.agent.Install(ctx, models.InstallRequest{
		IP:          device.IP,
		Host:        device.Host,
		Model:       device.Model,
		Description: device.Description,
		Variant:     string(variant),
		Printer:     sel.Printer,
		Scanner:     sel.Scanner,
	})

	if !result.Success {
		progress.Abort()
		if err := db.FinishAttempt(o.conn, attempt.ID, "failed", result.Error); err != nil {
			log.Printf("⚠️ Failed to finalize attempt %s: %v", attempt.ID, err)
		}
		o.saveSteps(attempt.ID, progress)
		o.bus.Publish(events.Event{
			Type:     events.InstallFailed,
			Severity: events.SeverityCritical,
			DeviceIP: device.IP,
			Model:    device.Model,
			Message:  fmt.Sprintf("Install failed on %s: %s", device.IP, result.Error),
			Metadata: map[string]string{"attempt_id": attempt.ID, "variant": string(variant)},
		})
		log.Printf("❌ Install failed for %s: %s", device.IP, result.Error)
		return Outcome{
			Status:    StatusFailed,
			AttemptID: attempt.ID,
			Error:     result.Error,
			Steps:     progress.Steps(),
		}
	}

	// Walk the remaining steps to completion now that the agent has
	// reported success for the whole sequence.
	for {
		step, ok := progress.Advance()
		if !ok {
			break
		}
		o.publishStep(attempt.ID, device, step)
	}

	if err := db.FinishAttempt(o.conn, attempt.ID, "succeeded", ""); err != nil {
		log.Printf("⚠️ Failed to finalize attempt %s: %v", attempt.ID, err)
	}
	o.saveSteps(attempt.ID, progress)
	o.bus.Publish(events.Event{
		Type:     events.InstallSucceeded,
		Severity: events.SeverityInfo,
		DeviceIP: device.IP,
		Model:    device.Model,
		Message:  fmt.Sprintf("Drivers installed on %s (%s)", device.IP, variant),
		Metadata: map[string]string{"attempt_id": attempt.ID, "variant": string(variant)},
	})
	log.Printf("✅ Install succeeded for %s (%s)", device.IP, variant)

	return Outcome{
		Status:    StatusInstalled,
		AttemptID: attempt.ID,
		Steps:     progress.Steps(),
	}
}

// legacyDownload resolves the model against the catalog and hands the
// operator a direct download link instead of driving an install.
func (o *Orchestrator) legacyDownload(ctx context.Context, device models.Device, variant capability.Variant) Outcome {
	attempt := o.newAttempt(device, variant, "download")
	if err := db.RecordAttempt(o.conn, attempt); err != nil {
		return Outcome{Status: StatusFailed, Error: err.Error()}
	}

	vm, key, ok := o.catalog.Resolve(device.Model)
	if !ok {
		msg := fmt.Sprintf("model %q not in artifact catalog", device.Model)
		if err := db.FinishAttempt(o.conn, attempt.ID, "failed", msg); err != nil {
			log.Printf("⚠️ Failed to finalize attempt %s: %v", attempt.ID, err)
		}
		o.bus.Publish(events.Event{
			Type:     events.ModelUnresolved,
			Severity: events.SeverityWarning,
			DeviceIP: device.IP,
			Model:    device.Model,
			Message:  msg,
			Metadata: map[string]string{"attempt_id": attempt.ID},
		})
		log.Printf("⚠️ Unresolved model %q for %s", device.Model, device.IP)
		return Outcome{Status: StatusUnresolved, AttemptID: attempt.ID, Error: msg}
	}

	filename, ok := catalog.FileFor(vm, variant)
	if !ok {
		msg := fmt.Sprintf("catalog entry %q has no %s artifact", key, variant)
		if err := db.FinishAttempt(o.conn, attempt.ID, "failed", msg); err != nil {
			log.Printf("⚠️ Failed to finalize attempt %s: %v", attempt.ID, err)
		}
		o.bus.Publish(events.Event{
			Type:     events.InstallFailed,
			Severity: events.SeverityWarning,
			DeviceIP: device.IP,
			Model:    device.Model,
			Message:  msg,
			Metadata: map[string]string{"attempt_id": attempt.ID, "variant": string(variant)},
		})
		return Outcome{Status: StatusFailed, AttemptID: attempt.ID, Error: msg}
	}

	url := o.locator.Locate(ctx, filename)

	if err := db.FinishAttempt(o.conn, attempt.ID, "succeeded", ""); err != nil {
		log.Printf("⚠️ Failed to finalize attempt %s: %v", attempt.ID, err)
	}
	o.bus.Publish(events.Event{
		Type:     events.InstallSucceeded,
		Severity: events.SeverityInfo,
		DeviceIP: device.IP,
		Model:    device.Model,
		Message:  fmt.Sprintf("Download link ready for %s (%s)", device.Model, filename),
		Metadata: map[string]string{"attempt_id": attempt.ID, "mode": "download"},
	})
	log.Printf("📦 Download link for %s: %s", device.IP, url)

	return Outcome{
		Status:      StatusDownload,
		AttemptID:   attempt.ID,
		DownloadURL: url,
		Filename:    filename,
	}
}

// ResolveDownload builds a download link for a bare model string, outside
// any device attempt. Used by the direct driver-download endpoint.
func (o *Orchestrator) ResolveDownload(ctx context.Context, model string, variant capability.Variant) (string, string, error) {
	if model == "" {
		return "", "", ErrNoModel
	}
	vm, key, ok := o.catalog.Resolve(model)
	if !ok {
		return "", "", fmt.Errorf("model %q not in artifact catalog", model)
	}
	filename, ok := catalog.FileFor(vm, variant)
	if !ok {
		return "", "", fmt.Errorf("catalog entry %q has no %s artifact", key, variant)
	}
	return o.locator.Locate(ctx, filename), filename, nil
}

func (o *Orchestrator) newAttempt(device models.Device, variant capability.Variant, mode string) *models.InstallAttempt {
	return &models.InstallAttempt{
		ID:         uuid.New().String(),
		DeviceIP:   device.IP,
		DeviceHost: device.Host,
		Model:      device.Model,
		Variant:    string(variant),
		Mode:       mode,
		Status:     "started",
		StartedAt:  time.Now().UTC(),
	}
}

// saveSteps records the final step states on the attempt row. Best
// effort; the attempt itself is already finalized.
func (o *Orchestrator) saveSteps(attemptID string, p *Progress) {
	data, err := json.Marshal(p.Steps())
	if err != nil {
		return
	}
	if err := db.SaveAttemptSteps(o.conn, attemptID, data); err != nil {
		log.Printf("⚠️ Failed to save steps for attempt %s: %v", attemptID, err)
	}
}

func (o *Orchestrator) publishStep(attemptID string, device models.Device, s Step) {
	o.bus.Publish(events.Event{
		Type:     events.InstallStep,
		Severity: events.SeverityInfo,
		DeviceIP: device.IP,
		Model:    device.Model,
		Message:  s.Label,
		Metadata: map[string]string{
			"attempt_id": attemptID,
			"step":       s.Name,
			"state":      string(s.State),
		},
	})
}
