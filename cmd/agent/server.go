package main

import (
	"encoding/json"
	"log"
	"net/http"

	"driverdock/internal/models"
)

// newMux builds the agent's loopback HTTP API.
func newMux(installer *Installer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", handleStatus)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/install", handleInstall(installer))
	return mux
}

// handleStatus is what the dashboard server probes to decide whether
// the plugin install path is available.
func handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"version": version,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleInstall(installer *Installer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, models.InstallResult{
				Success: false, Error: "method not allowed",
			})
			return
		}

		var req models.InstallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, models.InstallResult{
				Success: false, Error: "invalid install request",
			})
			return
		}
		if req.IP == "" || req.Model == "" || req.Variant == "" {
			writeJSON(w, http.StatusBadRequest, models.InstallResult{
				Success: false, Error: "ip, model and variant are required",
			})
			return
		}

		log.Printf("🖨️ Install: %s (%s) variant=%s", req.IP, req.Model, req.Variant)
		if err := installer.Install(r.Context(), req); err != nil {
			log.Printf("❌ Install failed for %s: %v", req.IP, err)
			writeJSON(w, http.StatusInternalServerError, models.InstallResult{
				Success: false, Error: err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, models.InstallResult{Success: true})
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("⚠️  Failed to encode response: %v", err)
	}
}
