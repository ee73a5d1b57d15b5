package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	assert.Equal(t, "wacapture", cfg.System.Appid)
	assert.Equal(t, 1816, cfg.Web.Port)
	assert.Equal(t, 3000, cfg.Whatsapp.ReconnectDelayMs)
	assert.Equal(t, 0, cfg.Whatsapp.MaxReconnects)
}

func TestLoadConfigFile(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "wacapture.yml")
	require.NoError(t, os.WriteFile(cfile, []byte(`
web:
  host: 127.0.0.1
  port: 9090
database:
  type: sqlite
  name: testdb
whatsapp:
  reconnect_delay_ms: 500
  retention_days: 30
`), 0644))

	cfg := LoadConfig(cfile)
	assert.Equal(t, "127.0.0.1", cfg.Web.Host)
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 500, cfg.Whatsapp.ReconnectDelayMs)
	assert.Equal(t, 30, cfg.Whatsapp.RetentionDays)
	// Untouched sections keep defaults.
	assert.Equal(t, "wacapture", cfg.System.Appid)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("WACAPTURE_WEB_PORT", "7001")
	t.Setenv("WACAPTURE_DB_TYPE", "sqlite")
	t.Setenv("WACAPTURE_WA_MAX_RECONNECTS", "5")

	cfg := LoadConfig("")
	assert.Equal(t, 7001, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 5, cfg.Whatsapp.MaxReconnects)
}
