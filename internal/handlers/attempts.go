package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"driverdock/internal/db"
	"driverdock/internal/models"
)

const defaultAttemptLimit = 50

// AttemptsHandler exposes the provisioning attempt history.
type AttemptsHandler struct {
	conn *sql.DB
}

// NewAttemptsHandler wires the attempt history endpoint.
func NewAttemptsHandler(conn *sql.DB) *AttemptsHandler {
	return &AttemptsHandler{conn: conn}
}

// List returns recent attempts, optionally filtered by device IP.
// GET /api/attempts?ip=...&limit=...
func (h *AttemptsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultAttemptLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			JSONError(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var attempts []models.InstallAttempt
	var err error
	if ip := r.URL.Query().Get("ip"); ip != "" {
		attempts, err = db.AttemptsForDevice(h.conn, ip, limit)
	} else {
		attempts, err = db.RecentAttempts(h.conn, limit)
	}
	if err != nil {
		JSONError(w, "Failed to load attempt history", http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []models.InstallAttempt{}
	}
	JSONResponse(w, attempts)
}
