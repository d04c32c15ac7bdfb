// Package plugin talks to the locally running privileged helper agent
// over its loopback HTTP API.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"driverdock/internal/models"
)

// State is the session-scoped view of the helper agent.
type State int

const (
	StateUnknown State = iota
	StateInstalled
	StateNotInstalled
)

func (s State) String() string {
	switch s {
	case StateInstalled:
		return "installed"
	case StateNotInstalled:
		return "not_installed"
	default:
		return "unknown"
	}
}

// Gateway is the client for the helper agent. The agent state is checked
// once (Refresh) and cached for the rest of the session; an agent
// installed mid-session is only seen after a server restart.
type Gateway struct {
	baseURL     string
	installPage string
	client      *http.Client

	mu    sync.RWMutex
	state State
}

// NewGateway creates a gateway for the agent at baseURL. installPage is
// where operators are sent when no agent is running. client may be nil.
func NewGateway(baseURL, installPage string, client *http.Client) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{
		baseURL:     baseURL,
		installPage: installPage,
		client:      client,
		state:       StateUnknown,
	}
}

// InstallPage returns the helper-install instructions page.
func (g *Gateway) InstallPage() string { return g.installPage }

// State returns the cached agent state.
func (g *Gateway) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Installed reports whether the cached state says the agent is running.
func (g *Gateway) Installed() bool { return g.State() == StateInstalled }

// Refresh performs the one status check for this session and caches the
// result. Returns the resulting installed flag.
func (g *Gateway) Refresh(ctx context.Context) bool {
	installed := g.CheckStatus(ctx)

	g.mu.Lock()
	if installed {
		g.state = StateInstalled
	} else {
		g.state = StateNotInstalled
	}
	g.mu.Unlock()

	return installed
}

// CheckStatus issues a single status request. Any transport failure or
// unexpected response is treated as "not installed" — the conservative
// default. Never returns an error.
func (g *Gateway) CheckStatus(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/status", nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(req)
	if err != nil {
		log.Printf("plugin: status check failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("plugin: status check returned HTTP %d", resp.StatusCode)
		return false
	}

	var status struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		log.Printf("plugin: bad status payload: %v", err)
		return false
	}
	return status.Status == "running"
}

// Install issues a single install request. Transport errors and non-2xx
// responses are normalized into a failure result with a human-readable
// message; callers always receive a value, never a panic or raw error.
func (g *Gateway) Install(ctx context.Context, r models.InstallRequest) models.InstallResult {
	payload, err := json.Marshal(r)
	if err != nil {
		return models.InstallResult{Success: false, Error: fmt.Sprintf("encode install request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/install", bytes.NewReader(payload))
	if err != nil {
		return models.InstallResult{Success: false, Error: fmt.Sprintf("build install request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return models.InstallResult{Success: false, Error: fmt.Sprintf("helper agent unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var result models.InstallResult
	if err := json.Unmarshal(body, &result); err != nil || (resp.StatusCode >= 300 && result.Error == "") {
		return models.InstallResult{
			Success: false,
			Error:   fmt.Sprintf("helper agent returned HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}
	if resp.StatusCode >= 300 {
		result.Success = false
	}
	return result
}
