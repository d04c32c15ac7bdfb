package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"driverdock/internal/models"
)

// mockRunner records commands instead of executing them.
type mockRunner struct {
	commands [][]string
	failOn   string // command name that should fail
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	m.commands = append(m.commands, append([]string{name}, args...))
	if m.failOn != "" && strings.Contains(name, m.failOn) {
		return "access denied", fmt.Errorf("exit status 5")
	}
	return "", nil
}

func (m *mockRunner) ran(name string) bool {
	for _, cmd := range m.commands {
		if strings.Contains(cmd[0], name) {
			return true
		}
	}
	return false
}

// bundleServer serves a fake driver artifact at the download endpoint.
func bundleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dl/drivers" {
			http.NotFound(w, r)
			return
		}
		// The real server redirects to the artifact; serving bytes
		// directly exercises the same client path.
		w.Write([]byte("driver-bundle-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func installRequest() models.InstallRequest {
	return models.InstallRequest{
		IP: "192.168.0.40", Host: "KMCC36FF", Model: "ECOSYS P3145dn",
		Variant: "printer", Printer: true,
	}
}

func TestInstallPrinterPipeline(t *testing.T) {
	srv := bundleServer(t)
	runner := &mockRunner{}
	inst := NewInstaller(srv.URL, t.TempDir(), srv.Client(), runner)

	if err := inst.Install(context.Background(), installRequest()); err != nil {
		t.Fatalf("Install: %v", err)
	}

	for _, want := range []string{"pnputil", "prnport", "printui"} {
		found := false
		for _, cmd := range runner.commands {
			if strings.Contains(strings.Join(cmd, " "), want) {
				found = true
			}
		}
		if !found {
			t.Errorf("expected a %s invocation, commands: %v", want, runner.commands)
		}
	}
	if runner.ran("wiainst") {
		t.Error("scanner tool invoked for a printer-only install")
	}
}

func TestInstallAllVariantConfiguresBoth(t *testing.T) {
	srv := bundleServer(t)
	runner := &mockRunner{}
	inst := NewInstaller(srv.URL, t.TempDir(), srv.Client(), runner)

	req := installRequest()
	req.Variant = "all"
	req.Scanner = true
	if err := inst.Install(context.Background(), req); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if !runner.ran("rundll32") {
		t.Error("printer not configured for variant=all")
	}
	if !runner.ran("wiainst") {
		t.Error("scanner not configured for variant=all")
	}
}

func TestInstallValidatesRequest(t *testing.T) {
	inst := NewInstaller("http://localhost:0", t.TempDir(), nil, &mockRunner{})

	tests := []models.InstallRequest{
		{Model: "M", Variant: "printer"},          // no IP
		{IP: "1.2.3.4", Variant: "printer"},       // no model
		{IP: "1.2.3.4", Model: "M"},               // no variant
	}
	for _, req := range tests {
		if err := inst.Install(context.Background(), req); err == nil {
			t.Errorf("expected validation error for %+v", req)
		}
	}
}

func TestInstallSurfacesToolFailure(t *testing.T) {
	srv := bundleServer(t)
	runner := &mockRunner{failOn: "pnputil"}
	inst := NewInstaller(srv.URL, t.TempDir(), srv.Client(), runner)

	err := inst.Install(context.Background(), installRequest())
	if err == nil {
		t.Fatal("expected an error when pnputil fails")
	}
	if !strings.Contains(err.Error(), "stage driver") {
		t.Errorf("error = %v, want stage driver context", err)
	}
}

func TestInstallFailsWhenServerUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	inst := NewInstaller(srv.URL, t.TempDir(), srv.Client(), &mockRunner{})
	err := inst.Install(context.Background(), installRequest())
	if err == nil || !strings.Contains(err.Error(), "fetch driver bundle") {
		t.Errorf("err = %v, want fetch failure", err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	mux := newMux(NewInstaller("http://localhost:0", t.TempDir(), nil, &mockRunner{}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "running" || resp["version"] == "" {
		t.Errorf("payload = %+v", resp)
	}
}

func TestInstallEndpointValidation(t *testing.T) {
	mux := newMux(NewInstaller("http://localhost:0", t.TempDir(), nil, &mockRunner{}))

	body, _ := json.Marshal(models.InstallRequest{IP: "1.2.3.4"}) // missing model/variant
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/install", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	var result models.InstallResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Success || result.Error == "" {
		t.Errorf("result = %+v", result)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/install", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestInstallEndpointSuccess(t *testing.T) {
	srv := bundleServer(t)
	runner := &mockRunner{}
	mux := newMux(NewInstaller(srv.URL, t.TempDir(), srv.Client(), runner))

	body, _ := json.Marshal(installRequest())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/install", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var result models.InstallResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if !result.Success {
		t.Errorf("result = %+v", result)
	}
}
