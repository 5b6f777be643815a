package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 15*time.Second, cfg.Worker.HeartbeatInterval)
	require.Equal(t, 0.70, cfg.Worker.CheckpointThreshold)
	require.Equal(t, 120*time.Second, cfg.Health.StallThreshold)
	require.Equal(t, 2, cfg.Health.MaxAutoRestarts)
	require.Equal(t, 3, cfg.Worker.MaxRetries)
	require.Equal(t, 30*time.Second, cfg.GracefulStopTimeout)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
worker:
  count: 8
  max_retries: 5
health:
  stall_threshold: 60s
merge:
  force: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Worker.Count)
	require.Equal(t, 5, cfg.Worker.MaxRetries)
	require.Equal(t, 60*time.Second, cfg.Health.StallThreshold)
	require.True(t, cfg.Merge.Force)
	// Untouched defaults survive the partial override.
	require.Equal(t, 0.70, cfg.Worker.CheckpointThreshold)
}

func TestLoadOverridesHistoryEnabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history_enabled: true\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.HistoryEnabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orc.yaml")
	cfg := DefaultConfig()
	cfg.Worker.Count = 6

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 6, loaded.Worker.Count)
}
