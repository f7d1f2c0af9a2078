package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "reports", cfg.Report.Dir)
	assert.Equal(t, 25, cfg.Enrich.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Enrich.BatchDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Enrich.MinCallDelay)
	assert.Equal(t, "https://api.coresignal.com/cdapi/v1", cfg.Coresignal.BaseURL)
	assert.Equal(t, "https://api.dropcontact.io", cfg.Dropcontact.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
workspace:
  id: ws-acme
log:
  level: debug
  format: console
server:
  port: 9090
enrich:
  batch_size: 10
  refresh: [industry]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "ws-acme", cfg.Workspace.ID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Enrich.BatchSize)
	assert.Equal(t, []string{"industry"}, cfg.Enrich.Refresh)
	// Defaults still apply for unset values
	assert.Equal(t, 2*time.Second, cfg.Enrich.BatchDelay)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ADRATA_STORE_DRIVER", "postgres")
	t.Setenv("ADRATA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("ADRATA_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestValidateDB(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("db")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/adrata"
	assert.NoError(t, cfg.Validate("db"))
}

func TestValidateEnrich(t *testing.T) {
	cfg := &Config{}
	cfg.Store.DatabaseURL = "postgres://localhost/adrata"

	err := cfg.Validate("enrich")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least one provider key")

	cfg.Dropcontact.Key = "dc-key"
	assert.NoError(t, cfg.Validate("enrich"))
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg.Server.Port = 9090
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := (&Config{}).Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateBatchSizeBounds(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080}}

	cfg.Enrich.BatchSize = 501
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "enrich.batch_size")

	cfg.Enrich.BatchSize = 25
	assert.NoError(t, cfg.Validate("serve"))
}
