package notify

import (
	"database/sql"
	"fmt"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// CreateService inserts a new notification destination.
func CreateService(db *sql.DB, svc *Service) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO notification_settings
			(name, service_type, config_json, enabled,
			 notify_on_critical, notify_on_warning, notify_on_info)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		svc.Name, svc.ServiceType, svc.ConfigJSON,
		boolInt(svc.Enabled),
		boolInt(svc.NotifyOnCritical),
		boolInt(svc.NotifyOnWarning),
		boolInt(svc.NotifyOnInfo))
	if err != nil {
		return 0, fmt.Errorf("create notification service: %w", err)
	}
	return res.LastInsertId()
}

// GetService retrieves a notification service by ID, or nil when absent.
func GetService(db *sql.DB, id int64) (*Service, error) {
	var svc Service
	var enabled, critical, warning, info int
	var createdAt, updatedAt string

	err := db.QueryRow(`
		SELECT id, name, service_type, config_json, enabled,
		       notify_on_critical, notify_on_warning, notify_on_info,
		       created_at, updated_at
		FROM notification_settings WHERE id = ?`, id).
		Scan(&svc.ID, &svc.Name, &svc.ServiceType, &svc.ConfigJSON,
			&enabled, &critical, &warning, &info, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification service: %w", err)
	}
	svc.Enabled = enabled == 1
	svc.NotifyOnCritical = critical == 1
	svc.NotifyOnWarning = warning == 1
	svc.NotifyOnInfo = info == 1
	svc.CreatedAt = parseTime(createdAt)
	svc.UpdatedAt = parseTime(updatedAt)
	return &svc, nil
}

// ListServices returns all notification services ordered by name.
func ListServices(db *sql.DB) ([]Service, error) {
	return queryServices(db, `
		SELECT id, name, service_type, config_json, enabled,
		       notify_on_critical, notify_on_warning, notify_on_info,
		       created_at, updated_at
		FROM notification_settings ORDER BY name`)
}

// ListEnabledServices returns only enabled notification services.
func ListEnabledServices(db *sql.DB) ([]Service, error) {
	return queryServices(db, `
		SELECT id, name, service_type, config_json, enabled,
		       notify_on_critical, notify_on_warning, notify_on_info,
		       created_at, updated_at
		FROM notification_settings WHERE enabled = 1 ORDER BY name`)
}

func queryServices(db *sql.DB, query string) ([]Service, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list notification services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var svc Service
		var enabled, critical, warning, info int
		var createdAt, updatedAt string
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.ServiceType, &svc.ConfigJSON,
			&enabled, &critical, &warning, &info, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan notification service: %w", err)
		}
		svc.Enabled = enabled == 1
		svc.NotifyOnCritical = critical == 1
		svc.NotifyOnWarning = warning == 1
		svc.NotifyOnInfo = info == 1
		svc.CreatedAt = parseTime(createdAt)
		svc.UpdatedAt = parseTime(updatedAt)
		out = append(out, svc)
	}
	return out, rows.Err()
}

// UpdateService updates a notification service's configuration.
func UpdateService(db *sql.DB, svc *Service) error {
	res, err := db.Exec(`
		UPDATE notification_settings SET
			name = ?, service_type = ?, config_json = ?, enabled = ?,
			notify_on_critical = ?, notify_on_warning = ?, notify_on_info = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		svc.Name, svc.ServiceType, svc.ConfigJSON,
		boolInt(svc.Enabled),
		boolInt(svc.NotifyOnCritical),
		boolInt(svc.NotifyOnWarning),
		boolInt(svc.NotifyOnInfo),
		svc.ID)
	if err != nil {
		return fmt.Errorf("update notification service: %w", err)
	}
	return expectOneRow(res, "update notification service")
}

// DeleteService removes a notification service; its rules cascade.
func DeleteService(db *sql.DB, id int64) error {
	res, err := db.Exec(`DELETE FROM notification_settings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notification service: %w", err)
	}
	return expectOneRow(res, "delete notification service")
}

// UpsertEventRule creates or updates a per-event-type rule for a service.
func UpsertEventRule(db *sql.DB, rule *EventRule) error {
	_, err := db.Exec(`
		INSERT INTO notification_event_rules (service_id, event_type, enabled, cooldown_secs)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(service_id, event_type) DO UPDATE SET
			enabled       = excluded.enabled,
			cooldown_secs = excluded.cooldown_secs`,
		rule.ServiceID, rule.EventType, boolInt(rule.Enabled), rule.Cooldown)
	if err != nil {
		return fmt.Errorf("upsert event rule: %w", err)
	}
	return nil
}

// GetEventRules returns all event rules for a service.
func GetEventRules(db *sql.DB, serviceID int64) ([]EventRule, error) {
	rows, err := db.Query(`
		SELECT id, service_id, event_type, enabled, cooldown_secs
		FROM notification_event_rules WHERE service_id = ?
		ORDER BY event_type`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get event rules: %w", err)
	}
	defer rows.Close()

	var out []EventRule
	for rows.Next() {
		var r EventRule
		var enabled int
		if err := rows.Scan(&r.ID, &r.ServiceID, &r.EventType, &enabled, &r.Cooldown); err != nil {
			return nil, fmt.Errorf("scan event rule: %w", err)
		}
		r.Enabled = enabled == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteEventRule removes a specific event rule.
func DeleteEventRule(db *sql.DB, id int64) error {
	_, err := db.Exec(`DELETE FROM notification_event_rules WHERE id = ?`, id)
	return err
}

// RecordNotification inserts a row into notification_history.
func RecordNotification(db *sql.DB, rec *Record) (int64, error) {
	var sentAt interface{}
	if !rec.SentAt.IsZero() {
		sentAt = rec.SentAt.UTC().Format(timeFormat)
	}

	res, err := db.Exec(`
		INSERT INTO notification_history
			(setting_id, event_type, device_ip, model, message, status, error_message, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SettingID, rec.EventType, rec.DeviceIP, rec.Model,
		rec.Message, rec.Status, rec.ErrorMessage, sentAt)
	if err != nil {
		return 0, fmt.Errorf("record notification: %w", err)
	}
	return res.LastInsertId()
}

// RecentHistory returns the latest N notification records.
func RecentHistory(db *sql.DB, limit int) ([]Record, error) {
	rows, err := db.Query(`
		SELECT id, COALESCE(setting_id,0), event_type,
		       COALESCE(device_ip,''), COALESCE(model,''),
		       message, status, COALESCE(error_message,''),
		       COALESCE(sent_at,''), created_at
		FROM notification_history
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var sentAt, createdAt string
		if err := rows.Scan(&r.ID, &r.SettingID, &r.EventType,
			&r.DeviceIP, &r.Model, &r.Message, &r.Status,
			&r.ErrorMessage, &sentAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.SentAt = parseTime(sentAt)
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: not found", op)
	}
	return nil
}
