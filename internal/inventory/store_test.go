package inventory

import (
	"testing"
	"time"

	"driverdock/internal/db"
	"driverdock/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Init(":memory:")
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn)
}

func TestSaveReportReplacesInventory(t *testing.T) {
	s := setupStore(t)

	first := models.ScanReport{
		Timestamp: time.Now().UTC(),
		Items: []models.Device{
			{IP: "192.168.0.40", Host: "KMCC36FF", Model: "ECOSYS P3145dn", Online: true},
			{IP: "192.168.0.41", Host: "KM7B21A0", Model: "ECOSYS M2040dn", Online: true, CanScan: true},
		},
	}
	if err := s.SaveReport(first); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	second := models.ScanReport{
		Items: []models.Device{
			{IP: "192.168.0.50", Host: "CANON01", Model: "MF428X", Online: true},
		},
	}
	if err := s.SaveReport(second); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err := s.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(got) != 1 || got[0].IP != "192.168.0.50" {
		t.Errorf("inventory = %+v, want only the rescan result", got)
	}
}

func TestOverrideAppliedOnRead(t *testing.T) {
	s := setupStore(t)

	s.SaveReport(models.ScanReport{Items: []models.Device{
		{IP: "192.168.0.40", Host: "KMCC36FF", Model: "", Online: true},
	}})

	if err := s.UpsertOverride(models.ModelOverride{
		Host: "KMCC36FF", Model: "ECOSYS P3145dn", Description: "Accounting printer",
	}); err != nil {
		t.Fatalf("UpsertOverride: %v", err)
	}

	d, err := s.GetDevice("192.168.0.40")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if d == nil {
		t.Fatal("device not found")
	}
	if d.Model != "ECOSYS P3145dn" || d.Description != "Accounting printer" {
		t.Errorf("device = %+v, want override applied", d)
	}
}

func TestOverrideDoesNotBlankFields(t *testing.T) {
	s := setupStore(t)

	s.SaveReport(models.ScanReport{Items: []models.Device{
		{IP: "10.0.0.9", Host: "PRN9", Model: "ScannedModel", Description: "from scan", Online: true},
	}})
	s.UpsertOverride(models.ModelOverride{Host: "PRN9", Model: "PinnedModel"})

	d, _ := s.GetDevice("10.0.0.9")
	if d.Model != "PinnedModel" {
		t.Errorf("model = %q, want PinnedModel", d.Model)
	}
	// Empty override description falls through to the scanned value.
	if d.Description != "from scan" {
		t.Errorf("description = %q, want scanned value preserved", d.Description)
	}
}

func TestGetDeviceUnknownIP(t *testing.T) {
	s := setupStore(t)

	d, err := s.GetDevice("172.16.0.1")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if d != nil {
		t.Errorf("expected nil for unknown IP, got %+v", d)
	}
}

func TestListAndDeleteOverrides(t *testing.T) {
	s := setupStore(t)

	s.UpsertOverride(models.ModelOverride{Host: "B", Model: "M1"})
	s.UpsertOverride(models.ModelOverride{Host: "A", Model: "M2"})

	got, err := s.ListOverrides()
	if err != nil {
		t.Fatalf("ListOverrides: %v", err)
	}
	if len(got) != 2 || got[0].Host != "A" {
		t.Errorf("overrides = %+v, want 2 ordered by host", got)
	}

	if err := s.DeleteOverride(got[0].ID); err != nil {
		t.Fatalf("DeleteOverride: %v", err)
	}
	got, _ = s.ListOverrides()
	if len(got) != 1 {
		t.Errorf("after delete, %d overrides remain, want 1", len(got))
	}
}
