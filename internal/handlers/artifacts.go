package handlers

import (
	"net/http"
	"os"
	"path/filepath"
)

// PublishFiles serves driver artifacts from the local publish directory.
// HEAD requests are answered without a body, which is what the artifact
// locator probes with.
func PublishFiles(publishDir string) http.Handler {
	fs := http.FileServer(http.Dir(publishDir))
	return http.StripPrefix("/publish/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Refuse directory listings; only concrete artifacts are served.
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			JSONError(w, "Not found", http.StatusNotFound)
			return
		}
		if info, err := os.Stat(filepath.Join(publishDir, filepath.FromSlash(r.URL.Path))); err != nil || info.IsDir() {
			JSONError(w, "Not found", http.StatusNotFound)
			return
		}
		fs.ServeHTTP(w, r)
	}))
}
