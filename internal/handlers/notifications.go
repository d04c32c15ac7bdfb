package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"driverdock/internal/notify"
)

// NotificationHandlers manages Shoutrrr destinations and their history.
type NotificationHandlers struct {
	conn *sql.DB
}

// NewNotificationHandlers wires the notification settings endpoints.
func NewNotificationHandlers(conn *sql.DB) *NotificationHandlers {
	return &NotificationHandlers{conn: conn}
}

// Services handles notification destination CRUD.
// GET/POST/PUT/DELETE /api/notifications/services
func (h *NotificationHandlers) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		services, err := notify.ListServices(h.conn)
		if err != nil {
			JSONError(w, "Failed to load notification services", http.StatusInternalServerError)
			return
		}
		if services == nil {
			services = []notify.Service{}
		}
		JSONResponse(w, services)

	case http.MethodPost:
		var svc notify.Service
		if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
			JSONError(w, "Invalid service", http.StatusBadRequest)
			return
		}
		if svc.Name == "" || svc.ConfigJSON == "" {
			JSONError(w, "name and config_json are required", http.StatusBadRequest)
			return
		}
		id, err := notify.CreateService(h.conn, &svc)
		if err != nil {
			JSONError(w, "Failed to create service", http.StatusInternalServerError)
			return
		}
		JSONResponse(w, map[string]interface{}{"status": "created", "id": id})

	case http.MethodPut:
		var svc notify.Service
		if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
			JSONError(w, "Invalid service", http.StatusBadRequest)
			return
		}
		if err := notify.UpdateService(h.conn, &svc); err != nil {
			JSONError(w, "Failed to update service", http.StatusInternalServerError)
			return
		}
		JSONResponse(w, map[string]string{"status": "updated"})

	case http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			JSONError(w, "Invalid service id", http.StatusBadRequest)
			return
		}
		if err := notify.DeleteService(h.conn, id); err != nil {
			JSONError(w, "Failed to delete service", http.StatusInternalServerError)
			return
		}
		JSONResponse(w, map[string]string{"status": "deleted"})

	default:
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Rules handles per-event-type rules for a service.
// GET/POST /api/notifications/rules?service_id=...
func (h *NotificationHandlers) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serviceID, err := strconv.ParseInt(r.URL.Query().Get("service_id"), 10, 64)
		if err != nil {
			JSONError(w, "Invalid service_id", http.StatusBadRequest)
			return
		}
		rules, err := notify.GetEventRules(h.conn, serviceID)
		if err != nil {
			JSONError(w, "Failed to load rules", http.StatusInternalServerError)
			return
		}
		if rules == nil {
			rules = []notify.EventRule{}
		}
		JSONResponse(w, rules)

	case http.MethodPost:
		var rule notify.EventRule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			JSONError(w, "Invalid rule", http.StatusBadRequest)
			return
		}
		if rule.ServiceID == 0 || rule.EventType == "" {
			JSONError(w, "service_id and event_type are required", http.StatusBadRequest)
			return
		}
		if err := notify.UpsertEventRule(h.conn, &rule); err != nil {
			JSONError(w, "Failed to save rule", http.StatusInternalServerError)
			return
		}
		JSONResponse(w, map[string]string{"status": "saved"})

	default:
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// History returns the most recent notification dispatches.
// GET /api/notifications/history
func (h *NotificationHandlers) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			JSONError(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	history, err := notify.RecentHistory(h.conn, limit)
	if err != nil {
		JSONError(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []notify.Record{}
	}
	JSONResponse(w, history)
}
