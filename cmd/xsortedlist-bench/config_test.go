package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	require.Equal(t, defaultBenchConfig(), cfg)
}

func TestLoadConfig_Layers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: layered
log:
  level: debug
metrics:
  exporter: stdout
  interval: 3s
workload:
  keys: 64
  split: 2
  mutex: spin
`), 0o600))
	t.Setenv("XSL_WORKLOAD_SPLIT", "8")
	t.Setenv("XSL_WORKLOAD_BATCHWORKERS", "4")

	cfg, err := loadConfig(path, map[string]any{
		"workload.keys": 128,
	})
	require.NoError(t, err)
	require.Equal(t, "layered", cfg.Name)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Encoder)
	require.Equal(t, "stdout", cfg.Metrics.Exporter)
	require.Equal(t, 3*time.Second, cfg.Metrics.Interval)
	require.Equal(t, 128, cfg.Workload.Keys)
	require.Equal(t, 8, cfg.Workload.Split)
	require.Equal(t, 4, cfg.Workload.BatchWorkers)
	require.Equal(t, "spin", cfg.Workload.Mutex)
	require.Equal(t, int64(1), cfg.Workload.Seed)
}

func TestLoadConfig_Invalid(t *testing.T) {
	testcases := []struct {
		name      string
		overrides map[string]any
	}{
		{"encoder", map[string]any{"log.encoder": "xml"}},
		{"exporter", map[string]any{"metrics.exporter": "statsd"}},
		{"keys", map[string]any{"workload.keys": 0}},
		{"split", map[string]any{"workload.split": -1}},
		{"capacity", map[string]any{"workload.keys": 10, "workload.capacity": 5}},
		{"mutex", map[string]any{"workload.mutex": "rw"}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			_, err := loadConfig("", tc.overrides)
			require.Error(tt, err)
		})
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}
