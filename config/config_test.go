package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, 5, cfg.Concurrent)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "substore.db", cfg.Database.DSN)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.Backend.URL)
	assert.Equal(t, 30, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Sync.DebounceMs)
	assert.Equal(t, 1800, cfg.Sync.CheckIntervalSeconds)
	assert.Equal(t, "exports", cfg.Export.Dir)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
token: local-token
concurrent: 10
server:
  address: 0.0.0.0:9090
backend:
  url: http://backend:3000
  token: backend-token
  timeout_seconds: 15
sync:
  debounce_ms: 500
cron_jobs:
  - name: nightly
    schedule: "0 0 3 * * *"
    sync_subscriptions: true
webhooks:
  - name: bark
    url: https://api.day.app/key/{{.Message}}
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "local-token", cfg.Token)
	assert.Equal(t, 10, cfg.Concurrent)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address)
	assert.Equal(t, "http://backend:3000", cfg.Backend.URL)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Debounce())
	// 未显式配置的项仍取默认值
	assert.Equal(t, 1800, cfg.Sync.CheckIntervalSeconds)

	if assert.Len(t, cfg.CronJobs, 1) {
		assert.Equal(t, "nightly", cfg.CronJobs[0].Name)
		assert.True(t, cfg.CronJobs[0].SyncSubscriptions)
		assert.False(t, cfg.CronJobs[0].RefreshFlow)
	}
	if assert.Len(t, cfg.Webhooks, 1) {
		assert.Equal(t, "bark", cfg.Webhooks[0].Name)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
token: file-token
backend:
  url: http://file:3000
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SUBSTORE_TOKEN", "env-token")
	t.Setenv("SUBSTORE_BACKEND_URL", "http://env:3000")
	t.Setenv("SUBSTORE_CONCURRENT", "3")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "http://env:3000", cfg.Backend.URL)
	assert.Equal(t, 3, cfg.Concurrent)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("token: [broken"), 0o644))
	t.Setenv("CONFIG_PATH", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}
