package handlers

import (
	"net/http"
	"strings"

	"driverdock/internal/auth"
	"driverdock/internal/models"
)

// StaticFiles serves the dashboard assets with auth check
func StaticFiles(config models.Config, authMgr *auth.Manager) http.HandlerFunc {
	fs := http.FileServer(http.Dir(config.WebDir))

	// Extensions that don't require auth
	publicExtensions := []string{".css", ".js", ".ico", ".png", ".svg"}

	return func(w http.ResponseWriter, r *http.Request) {
		// Always allow the login page, the plugin setup page, and assets
		if r.URL.Path == "/login.html" || r.URL.Path == config.PluginPage ||
			hasPublicExtension(r.URL.Path, publicExtensions) {
			fs.ServeHTTP(w, r)
			return
		}

		if config.AuthEnabled && authMgr.GetSessionFromRequest(r) == nil {
			http.Redirect(w, r, "/login.html", http.StatusFound)
			return
		}

		fs.ServeHTTP(w, r)
	}
}

func hasPublicExtension(path string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
