package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpannell/strmsync/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3, cfg.Snapshots.Retention)
	assert.Equal(t, 8, cfg.Sync.Workers)
	assert.Equal(t, 50*time.Millisecond, cfg.RequestDelay())
	assert.Equal(t, time.Second, cfg.RetryDelay())
	assert.Equal(t, 168*time.Hour, cfg.FullSyncInterval())
	assert.InDelta(t, 50, cfg.Sync.ChangeThresholdPct, 0.001)
	assert.InDelta(t, 20, cfg.Sync.DeleteThresholdPct, 0.001)
	assert.False(t, cfg.LiveTV.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	chdir(t, dir)

	content := []byte(`
port: 9000
library:
  path: /data/library
  write_nfo: false
provider:
  base_url: http://upstream.example
  username: user
  password: pass
  request_delay_ms: 100
sync:
  workers: 4
  change_threshold_pct: 30
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), content, 0644))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/data/library", cfg.Library.Path)
	assert.False(t, cfg.Library.WriteNFO)
	assert.Equal(t, "http://upstream.example", cfg.Provider.BaseURL)
	assert.Equal(t, 100*time.Millisecond, cfg.RequestDelay())
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.InDelta(t, 30, cfg.Sync.ChangeThresholdPct, 0.001)
	// Unset keys keep their defaults.
	assert.Equal(t, 3, cfg.Provider.RetryCount)
}

func TestEnvOverride(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())
	t.Setenv("STRMSYNC_PROVIDER_BASE_URL", "http://env.example")
	t.Setenv("STRMSYNC_PORT", "8181")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://env.example", cfg.Provider.BaseURL)
	assert.Equal(t, 8181, cfg.Port)
}

// chdir changes the working directory for the test, restoring it on cleanup.
// Equivalent to t.Chdir, which requires Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
