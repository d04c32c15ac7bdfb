package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"driverdock/internal/models"
)

const timeFormat = "2006-01-02 15:04:05"

// RecordAttempt inserts a new provisioning attempt in "started" state.
func RecordAttempt(conn *sql.DB, a *models.InstallAttempt) error {
	_, err := conn.Exec(`
		INSERT INTO install_attempts
			(id, device_ip, device_host, model, variant, mode, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DeviceIP, a.DeviceHost, a.Model, a.Variant, a.Mode,
		a.Status, a.StartedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// FinishAttempt updates an attempt's terminal status and error message.
func FinishAttempt(conn *sql.DB, id, status, errMsg string) error {
	res, err := conn.Exec(`
		UPDATE install_attempts
		SET status = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		status, errMsg, time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish attempt: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish attempt: %s not found", id)
	}
	return nil
}

// SaveAttemptSteps stores the progress step states for an attempt as a
// JSON array.
func SaveAttemptSteps(conn *sql.DB, id string, steps []byte) error {
	if len(steps) == 0 {
		steps = []byte("[]")
	}
	_, err := conn.Exec(`UPDATE install_attempts SET steps = ? WHERE id = ?`,
		string(steps), id)
	if err != nil {
		return fmt.Errorf("save attempt steps: %w", err)
	}
	return nil
}

// RecentAttempts returns the latest provisioning attempts, newest first.
func RecentAttempts(conn *sql.DB, limit int) ([]models.InstallAttempt, error) {
	rows, err := conn.Query(`
		SELECT id, device_ip, device_host, model, variant, mode, status,
		       error, steps, started_at, COALESCE(finished_at, '')
		FROM install_attempts
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	defer rows.Close()

	var out []models.InstallAttempt
	for rows.Next() {
		var a models.InstallAttempt
		var steps string
		var startedAt, finishedAt string
		if err := rows.Scan(&a.ID, &a.DeviceIP, &a.DeviceHost, &a.Model,
			&a.Variant, &a.Mode, &a.Status, &a.Error, &steps, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if steps != "" && steps != "[]" {
			a.Steps = json.RawMessage(steps)
		}
		a.StartedAt = parseTime(startedAt)
		a.FinishedAt = parseTime(finishedAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AttemptsForDevice returns a device's attempts, newest first.
func AttemptsForDevice(conn *sql.DB, ip string, limit int) ([]models.InstallAttempt, error) {
	rows, err := conn.Query(`
		SELECT id, device_ip, device_host, model, variant, mode, status,
		       error, steps, started_at, COALESCE(finished_at, '')
		FROM install_attempts
		WHERE device_ip = ?
		ORDER BY started_at DESC LIMIT ?`, ip, limit)
	if err != nil {
		return nil, fmt.Errorf("attempts for device: %w", err)
	}
	defer rows.Close()

	var out []models.InstallAttempt
	for rows.Next() {
		var a models.InstallAttempt
		var steps string
		var startedAt, finishedAt string
		if err := rows.Scan(&a.ID, &a.DeviceIP, &a.DeviceHost, &a.Model,
			&a.Variant, &a.Mode, &a.Status, &a.Error, &steps, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if steps != "" && steps != "[]" {
			a.Steps = json.RawMessage(steps)
		}
		a.StartedAt = parseTime(startedAt)
		a.FinishedAt = parseTime(finishedAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}
