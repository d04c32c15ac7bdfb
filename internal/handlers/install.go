package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"driverdock/internal/capability"
	"driverdock/internal/inventory"
	"driverdock/internal/provision"
)

// InstallHandler accepts install clicks from the dashboard and hands
// them to the orchestrator.
type InstallHandler struct {
	orch  *provision.Orchestrator
	store *inventory.Store
}

// NewInstallHandler wires the install endpoint.
func NewInstallHandler(orch *provision.Orchestrator, store *inventory.Store) *InstallHandler {
	return &InstallHandler{orch: orch, store: store}
}

// installRequest is the dashboard's install payload. The device row is
// re-read from the inventory so the attempt uses current data, not what
// the browser last rendered.
type installRequest struct {
	IP      string `json:"ip"`
	Printer bool   `json:"printer"`
	Scanner bool   `json:"scanner"`
}

// Install processes one install click.
// POST /api/install
func (h *InstallHandler) Install(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid install request", http.StatusBadRequest)
		return
	}
	if req.IP == "" {
		JSONError(w, "ip is required", http.StatusBadRequest)
		return
	}

	device, err := h.store.GetDevice(req.IP)
	if err != nil {
		JSONError(w, "Failed to load device", http.StatusInternalServerError)
		return
	}
	if device == nil {
		JSONError(w, "Unknown device", http.StatusNotFound)
		return
	}

	outcome, err := h.orch.OnInstallRequested(r.Context(), *device,
		capability.Selection{Printer: req.Printer, Scanner: req.Scanner})

	switch {
	case errors.Is(err, capability.ErrNoSelection):
		JSONError(w, "Select printer, scanner, or both", http.StatusBadRequest)
		return
	case errors.Is(err, provision.ErrNoModel):
		JSONError(w, "Device has no model; set an override first", http.StatusBadRequest)
		return
	case errors.Is(err, provision.ErrInFlight):
		JSONError(w, "An install for this device is already in progress", http.StatusConflict)
		return
	case err != nil:
		JSONError(w, "Install failed", http.StatusInternalServerError)
		return
	}

	JSONResponse(w, outcome)
}

// DownloadLink resolves a bare model to a direct driver download.
// GET /dl/drivers?model=...&variant=printer
func (h *InstallHandler) DownloadLink(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	if model == "" {
		JSONError(w, "model is required", http.StatusBadRequest)
		return
	}

	variant := capability.Variant(r.URL.Query().Get("variant"))
	switch variant {
	case capability.VariantPrinter, capability.VariantScanner, capability.VariantAll:
	case "":
		variant = capability.VariantPrinter
	default:
		JSONError(w, "variant must be printer, scanner, or all", http.StatusBadRequest)
		return
	}

	url, _, err := h.orch.ResolveDownload(r.Context(), model, variant)
	if err != nil {
		JSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
