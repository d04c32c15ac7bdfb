package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"driverdock/internal/events"
	"driverdock/internal/inventory"
	"driverdock/internal/models"
)

// ScanHandlers serves the device inventory and ingests scan reports.
type ScanHandlers struct {
	store *inventory.Store
	bus   *events.Bus
}

// NewScanHandlers wires the inventory endpoints.
func NewScanHandlers(store *inventory.Store, bus *events.Bus) *ScanHandlers {
	return &ScanHandlers{store: store, bus: bus}
}

// List returns the current device inventory with overrides applied.
// GET /api/scan
func (h *ScanHandlers) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.store.ListDevices()
	if err != nil {
		log.Printf("⚠️  List devices: %v", err)
		JSONError(w, "Failed to load device inventory", http.StatusInternalServerError)
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	JSONResponse(w, map[string]interface{}{
		"count": len(devices),
		"items": devices,
	})
}

// Ingest accepts a scan report from the network scan collaborator and
// replaces the inventory with it.
// POST /api/scan-report
func (h *ScanHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var report models.ScanReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		JSONError(w, "Invalid scan report", http.StatusBadRequest)
		return
	}

	if err := h.store.SaveReport(report); err != nil {
		log.Printf("⚠️  Save scan report: %v", err)
		JSONError(w, "Failed to store scan report", http.StatusInternalServerError)
		return
	}

	log.Printf("📡 Scan report ingested: %d devices from %s", len(report.Items), report.Hostname)
	h.bus.Publish(events.Event{
		Type:     events.ScanIngested,
		Severity: events.SeverityInfo,
		Message:  fmt.Sprintf("Scan report with %d devices ingested", len(report.Items)),
		Metadata: map[string]string{"source": report.Hostname},
	})

	JSONResponse(w, map[string]interface{}{
		"status": "stored",
		"count":  len(report.Items),
	})
}

// Overrides handles operator model overrides.
// GET/POST/DELETE /api/overrides
func (h *ScanHandlers) Overrides(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		overrides, err := h.store.ListOverrides()
		if err != nil {
			JSONError(w, "Failed to load overrides", http.StatusInternalServerError)
			return
		}
		if overrides == nil {
			overrides = []models.ModelOverride{}
		}
		JSONResponse(w, overrides)

	case http.MethodPost:
		var o models.ModelOverride
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
			JSONError(w, "Invalid override", http.StatusBadRequest)
			return
		}
		if o.Host == "" || o.Model == "" {
			JSONError(w, "host and model are required", http.StatusBadRequest)
			return
		}
		if err := h.store.UpsertOverride(o); err != nil {
			JSONError(w, "Failed to save override", http.StatusInternalServerError)
			return
		}
		log.Printf("✏️  Model override: %s -> %s", o.Host, o.Model)
		JSONResponse(w, map[string]string{"status": "saved"})

	case http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			JSONError(w, "Invalid override id", http.StatusBadRequest)
			return
		}
		if err := h.store.DeleteOverride(id); err != nil {
			JSONError(w, "Failed to delete override", http.StatusInternalServerError)
			return
		}
		JSONResponse(w, map[string]string{"status": "deleted"})

	default:
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
