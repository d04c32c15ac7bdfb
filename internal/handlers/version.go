package handlers

import (
	"net/http"

	"driverdock/internal/version"
)

// VersionHandler answers update-check requests against GitHub releases.
type VersionHandler struct {
	checker *version.Checker
}

func NewVersionHandler(currentVersion, owner, repo string) *VersionHandler {
	return &VersionHandler{
		checker: version.NewChecker(currentVersion, owner, repo),
	}
}

// CheckVersion handles GET /api/version/check.
func (h *VersionHandler) CheckVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info, err := h.checker.Check()
	if err != nil {
		// Graceful response even when GitHub is unreachable.
		JSONResponse(w, map[string]interface{}{
			"current_version":  Version,
			"update_available": false,
			"error":            err.Error(),
		})
		return
	}
	JSONResponse(w, info)
}
