// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
)

// Config holds the process-level configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string
	// ArtifactsDir is the root directory of application artifact bundles
	// (Helm values templates, manifests) shipped with the binary.
	ArtifactsDir string

	Timeouts Timeouts
}

// Load reads configuration from environment variables.
// DIP_DATABASE_URL is required; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:   getEnv("DIP_LISTEN_ADDR", ":8000"),
		DatabaseURL:  os.Getenv("DIP_DATABASE_URL"),
		ArtifactsDir: getEnv("DIP_ARTIFACTS_DIR", "artifacts"),
		Timeouts:     LoadTimeouts(),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DIP_DATABASE_URL is required")
	}
	return cfg, nil
}

// getEnv returns the variable's value or the default when unset.
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
