package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DB_DSN", "HTTP_ADDR", "TOGGL_BASE_URL", "TOGGL_REPORTS_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "toggl-connector.db", cfg.DB.DSN)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Toggl.BaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_DSN", "user:pass@tcp(localhost:3306)/timesheets")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("TOGGL_BASE_URL", "http://localhost:8765")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/timesheets", cfg.DB.DSN)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "http://localhost:8765", cfg.Toggl.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRequiresDSNForMySQL(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_DSN", "")

	_, err := Load()
	require.Error(t, err)
}
