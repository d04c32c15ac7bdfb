// Package inventory stores the device list reported by the network scan
// collaborator, with operator-maintained model overrides applied on read.
package inventory

import (
	"database/sql"
	"fmt"
	"time"

	"driverdock/internal/models"
)

const timeFormat = "2006-01-02 15:04:05"

// Store persists scan results and overrides.
type Store struct {
	conn *sql.DB
}

// NewStore wraps a database handle.
func NewStore(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

// SaveReport replaces the device inventory with the contents of a scan
// report. One scan result set at a time; a rescan supersedes the last.
func (s *Store) SaveReport(report models.ScanReport) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("save scan report: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM devices`); err != nil {
		return fmt.Errorf("clear devices: %w", err)
	}

	reportedAt := report.Timestamp
	if reportedAt.IsZero() {
		reportedAt = time.Now().UTC()
	}

	for _, d := range report.Items {
		if d.IP == "" {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO devices (ip, host, model, description, online, can_scan, reported_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ip) DO UPDATE SET
				host        = excluded.host,
				model       = excluded.model,
				description = excluded.description,
				online      = excluded.online,
				can_scan    = excluded.can_scan,
				reported_at = excluded.reported_at`,
			d.IP, d.Host, d.Model, d.Description,
			boolInt(d.Online), boolInt(d.CanScan),
			reportedAt.UTC().Format(timeFormat))
		if err != nil {
			return fmt.Errorf("insert device %s: %w", d.IP, err)
		}
	}

	return tx.Commit()
}

// ListDevices returns the current inventory ordered by IP, with any
// host-keyed model overrides applied.
func (s *Store) ListDevices() ([]models.Device, error) {
	rows, err := s.conn.Query(`
		SELECT d.ip, d.host,
		       COALESCE(NULLIF(o.model, ''), d.model),
		       COALESCE(NULLIF(o.description, ''), d.description),
		       d.online, d.can_scan
		FROM devices d
		LEFT JOIN model_overrides o ON o.host = d.host AND d.host != ''
		ORDER BY d.ip`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		var d models.Device
		var online, canScan int
		if err := rows.Scan(&d.IP, &d.Host, &d.Model, &d.Description, &online, &canScan); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		d.Online = online == 1
		d.CanScan = canScan == 1
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDevice returns a single device by IP with overrides applied, or
// nil when the IP is not in the inventory.
func (s *Store) GetDevice(ip string) (*models.Device, error) {
	var d models.Device
	var online, canScan int
	err := s.conn.QueryRow(`
		SELECT d.ip, d.host,
		       COALESCE(NULLIF(o.model, ''), d.model),
		       COALESCE(NULLIF(o.description, ''), d.description),
		       d.online, d.can_scan
		FROM devices d
		LEFT JOIN model_overrides o ON o.host = d.host AND d.host != ''
		WHERE d.ip = ?`, ip).
		Scan(&d.IP, &d.Host, &d.Model, &d.Description, &online, &canScan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	d.Online = online == 1
	d.CanScan = canScan == 1
	return &d, nil
}

// UpsertOverride pins a model/description for a known host.
func (s *Store) UpsertOverride(o models.ModelOverride) error {
	_, err := s.conn.Exec(`
		INSERT INTO model_overrides (host, model, description)
		VALUES (?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET
			model       = excluded.model,
			description = excluded.description`,
		o.Host, o.Model, o.Description)
	if err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

// ListOverrides returns all overrides ordered by host.
func (s *Store) ListOverrides() ([]models.ModelOverride, error) {
	rows, err := s.conn.Query(`
		SELECT id, host, model, description, created_at
		FROM model_overrides ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var out []models.ModelOverride
	for rows.Next() {
		var o models.ModelOverride
		var createdAt string
		if err := rows.Scan(&o.ID, &o.Host, &o.Model, &o.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		o.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteOverride removes an override by id.
func (s *Store) DeleteOverride(id int64) error {
	_, err := s.conn.Exec(`DELETE FROM model_overrides WHERE id = ?`, id)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
