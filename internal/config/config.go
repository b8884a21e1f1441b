package config

import (
	"errors"
	"os"
)

// Config holds environment-driven bootstrap configuration. The per-tenant
// connector settings (token, workspace, tier, skip-list) live in the
// database and are managed with the configure command.
type Config struct {
	DB struct {
		Driver string // sqlite (default) or mysql
		DSN    string
	}
	HTTP struct {
		Addr string
	}
	Toggl struct {
		BaseURL    string // default: https://www.toggl.com
		ReportsURL string // default: https://toggl.com
	}
	Log struct {
		Level string // debug, info, warn, error
	}
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config

	cfg.DB.Driver = os.Getenv("DB_DRIVER")
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "sqlite"
	}
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		if cfg.DB.Driver != "sqlite" {
			return cfg, errors.New("DB_DSN is required for non-sqlite drivers")
		}
		cfg.DB.DSN = "toggl-connector.db"
	}

	cfg.HTTP.Addr = os.Getenv("HTTP_ADDR")
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}

	cfg.Toggl.BaseURL = os.Getenv("TOGGL_BASE_URL")
	cfg.Toggl.ReportsURL = os.Getenv("TOGGL_REPORTS_URL")

	cfg.Log.Level = os.Getenv("LOG_LEVEL")
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}
