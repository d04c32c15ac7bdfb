package config

import (
	"os"
	"strings"

	"driverdock/internal/models"
)

// Load returns the server configuration from environment variables
func Load() models.Config {
	return models.Config{
		Port:       getEnv("PORT", "8080"),
		DBPath:     getEnv("DB_PATH", "driverdock.db"),
		WebDir:     getEnv("WEB_DIR", "./web"),
		PublishDir: getEnv("PUBLISH_DIR", "./publish"),
		CatalogSources: getEnvList("CATALOG_SOURCES",
			"files-db.json", "./static/files-db.json"),
		ArtifactBases: getEnvList("ARTIFACT_BASES", "/publish/"),
		PluginEnabled: getEnv("PLUGIN_ENABLED", "true") == "true",
		PluginURL:     getEnv("PLUGIN_URL", "http://127.0.0.1:8081"),
		PluginPage:    getEnv("PLUGIN_INSTALL_PAGE", "/plugin-install.html"),
		AdminUser:     getEnv("ADMIN_USER", "admin"),
		AdminPass:     getEnv("ADMIN_PASS", ""),
		AuthEnabled:   getEnv("AUTH_ENABLED", "true") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvList reads a comma-separated list, falling back to the given defaults.
func getEnvList(key string, fallback ...string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
