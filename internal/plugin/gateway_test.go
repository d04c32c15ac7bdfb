package plugin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"driverdock/internal/models"
)

func agentStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckStatusRunning(t *testing.T) {
	srv := agentStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status": "running", "version": "1.0.0"}`))
	})

	g := NewGateway(srv.URL, "/plugin-install.html", srv.Client())
	if !g.CheckStatus(context.Background()) {
		t.Error("expected CheckStatus true for running agent")
	}
}

func TestCheckStatusTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	g := NewGateway(srv.URL, "/plugin-install.html", nil)
	if g.CheckStatus(context.Background()) {
		t.Error("expected CheckStatus false on transport failure")
	}
}

func TestCheckStatusNon200(t *testing.T) {
	srv := agentStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	g := NewGateway(srv.URL, "/plugin-install.html", srv.Client())
	if g.CheckStatus(context.Background()) {
		t.Error("expected CheckStatus false on HTTP 503")
	}
}

func TestRefreshTransitionsState(t *testing.T) {
	srv := agentStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "running"}`))
	})

	g := NewGateway(srv.URL, "/plugin-install.html", srv.Client())
	if g.State() != StateUnknown {
		t.Fatalf("initial state = %s, want unknown", g.State())
	}

	if !g.Refresh(context.Background()) {
		t.Fatal("Refresh returned false for a running agent")
	}
	if g.State() != StateInstalled {
		t.Errorf("state after refresh = %s, want installed", g.State())
	}
	if !g.Installed() {
		t.Error("Installed() = false after successful refresh")
	}
}

func TestRefreshUnreachableAgentIsNotInstalled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	g := NewGateway(srv.URL, "/plugin-install.html", nil)
	g.Refresh(context.Background())

	if g.State() != StateNotInstalled {
		t.Errorf("state = %s, want not_installed", g.State())
	}
}

func TestInstallSuccess(t *testing.T) {
	srv := agentStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/install" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success": true}`))
	})

	g := NewGateway(srv.URL, "/plugin-install.html", srv.Client())
	res := g.Install(context.Background(), models.InstallRequest{
		IP: "192.168.0.40", Model: "M2040", Variant: "all",
	})
	if !res.Success {
		t.Errorf("Install failed: %s", res.Error)
	}
}

func TestInstallRejectedCarriesAgentError(t *testing.T) {
	srv := agentStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "driver archive missing"}`))
	})

	g := NewGateway(srv.URL, "/plugin-install.html", srv.Client())
	res := g.Install(context.Background(), models.InstallRequest{IP: "10.0.0.5", Model: "P3145", Variant: "printer"})

	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Error != "driver archive missing" {
		t.Errorf("error = %q, want agent's verbatim message", res.Error)
	}
}

func TestInstallHTTP500YieldsNonEmptyError(t *testing.T) {
	srv := agentStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	g := NewGateway(srv.URL, "/plugin-install.html", srv.Client())
	res := g.Install(context.Background(), models.InstallRequest{IP: "10.0.0.5", Model: "P3145", Variant: "printer"})

	if res.Success {
		t.Fatal("expected failure result on HTTP 500")
	}
	if res.Error == "" {
		t.Error("expected non-empty error message")
	}
}

func TestInstallTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	g := NewGateway(srv.URL, "/plugin-install.html", nil)
	res := g.Install(context.Background(), models.InstallRequest{IP: "10.0.0.5", Model: "P3145", Variant: "printer"})

	if res.Success || res.Error == "" {
		t.Errorf("want failure with message, got %+v", res)
	}
}
