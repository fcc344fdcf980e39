package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sql", cfg.State.Backend)
	assert.Equal(t, "datastore", cfg.State.Prefix)
	assert.Equal(t, 168*time.Hour, cfg.State.TTL)
	assert.Equal(t, 60*time.Second, cfg.Source.Timeout)
	assert.Len(t, cfg.Source.GroupNames(), 5)
	assert.Equal(t, 10.0, cfg.Registry.RateLimit)
	assert.True(t, cfg.Registry.InsecureSkipVerify)
	assert.Equal(t, "log", cfg.Notify.Channels)
	assert.Equal(t, 10, cfg.Notify.MissingListLimit)
	assert.Equal(t, "https://api.telegram.org", cfg.Notify.Telegram.APIURL)
	assert.Equal(t, 9, cfg.Monitor.DailyReportHour)
	assert.Equal(t, 24*time.Hour, cfg.Monitor.Repeat)
	assert.False(t, cfg.Monitor.DryRun)
	assert.False(t, cfg.Storage.Enabled)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("SOURCE_URL", "https://zabbix.example.com")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("MONITOR_DRY_RUN", "true")
	t.Setenv("MONITOR_INTERVAL", "15m")
	t.Setenv("NOTIFY_TELEGRAM_CHAT_ID", "-100")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://zabbix.example.com", cfg.Source.URL)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.True(t, cfg.Monitor.DryRun)
	assert.Equal(t, 15*time.Minute, cfg.Monitor.Interval)
	assert.Equal(t, "-100", cfg.Notify.Telegram.ChatID)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REGISTRY_TOKEN=from-file\nSERVER_PORT=9999\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("REGISTRY_TOKEN")
		os.Unsetenv("SERVER_PORT")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Registry.Token)
	assert.Equal(t, "9999", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Source.Token = "token"
	require.NoError(t, cfg.Validate())

	cfg.State.Backend = "redis"
	cfg.Monitor.Thresholds = "1x"
	cfg.Notify.Channels = "telegram,pager"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state.backend")
	assert.Contains(t, err.Error(), "monitor.thresholds")
	assert.Contains(t, err.Error(), "notify.telegram")
	assert.Contains(t, err.Error(), "pager")
}
