package handlers

import (
	"net/http"

	"driverdock/internal/plugin"
)

// PluginHandler reports the helper agent's cached state to the dashboard.
type PluginHandler struct {
	gw      *plugin.Gateway
	enabled bool
}

// NewPluginHandler wires the plugin status endpoint.
func NewPluginHandler(gw *plugin.Gateway, enabled bool) *PluginHandler {
	return &PluginHandler{gw: gw, enabled: enabled}
}

// Status returns the session-cached helper agent state.
// GET /api/plugin-status
func (h *PluginHandler) Status(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, map[string]interface{}{
		"enabled":      h.enabled,
		"installed":    h.enabled && h.gw.Installed(),
		"state":        h.gw.State().String(),
		"install_page": h.gw.InstallPage(),
	})
}
