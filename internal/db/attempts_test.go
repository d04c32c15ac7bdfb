package db

import (
	"database/sql"
	"testing"
	"time"

	"driverdock/internal/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Init(":memory:")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRecordAndFinishAttempt(t *testing.T) {
	conn := setupTestDB(t)

	a := &models.InstallAttempt{
		ID:        "attempt-1",
		DeviceIP:  "192.168.0.40",
		Model:     "M2040",
		Variant:   "all",
		Mode:      "plugin",
		Status:    "started",
		StartedAt: time.Now().UTC(),
	}
	if err := RecordAttempt(conn, a); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	if err := FinishAttempt(conn, "attempt-1", "failed", "driver archive missing"); err != nil {
		t.Fatalf("FinishAttempt: %v", err)
	}

	got, err := RecentAttempts(conn, 10)
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d attempts, want 1", len(got))
	}
	if got[0].Status != "failed" || got[0].Error != "driver archive missing" {
		t.Errorf("attempt = %+v, want failed with error", got[0])
	}
	if got[0].FinishedAt.IsZero() {
		t.Error("expected finished_at to be set")
	}
}

func TestSaveAttemptSteps(t *testing.T) {
	conn := setupTestDB(t)

	RecordAttempt(conn, &models.InstallAttempt{
		ID:        "attempt-steps",
		DeviceIP:  "192.168.0.40",
		Variant:   "printer",
		Mode:      "plugin",
		Status:    "started",
		StartedAt: time.Now().UTC(),
	})

	steps := `[{"name":"download","label":"Downloading drivers","state":"completed"}]`
	if err := SaveAttemptSteps(conn, "attempt-steps", []byte(steps)); err != nil {
		t.Fatalf("SaveAttemptSteps: %v", err)
	}

	got, err := RecentAttempts(conn, 1)
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if string(got[0].Steps) != steps {
		t.Errorf("steps = %s, want %s", got[0].Steps, steps)
	}
}

func TestFinishAttemptUnknownID(t *testing.T) {
	conn := setupTestDB(t)

	if err := FinishAttempt(conn, "nope", "succeeded", ""); err == nil {
		t.Error("expected error for unknown attempt id")
	}
}

func TestAttemptsForDevice(t *testing.T) {
	conn := setupTestDB(t)

	for i, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.1"} {
		RecordAttempt(conn, &models.InstallAttempt{
			ID:        string(rune('a' + i)),
			DeviceIP:  ip,
			Variant:   "printer",
			Mode:      "plugin",
			Status:    "started",
			StartedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
	}

	got, err := AttemptsForDevice(conn, "10.0.0.1", 10)
	if err != nil {
		t.Fatalf("AttemptsForDevice: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d attempts for 10.0.0.1, want 2", len(got))
	}
}
