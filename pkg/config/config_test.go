package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 14, c.Engine.WindowDays)
	assert.Equal(t, 5*time.Second, c.Engine.SnapshotTimeout)
	assert.Equal(t, 3, c.Engine.ConflictRetries)
	assert.Equal(t, BackendRedis, c.Baseline.Backend)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "health.snapshots", c.Kafka.SnapshotsTopic)
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.True(t, c.Metrics.Enabled)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
engine:
  window_days: 30
  timezone: Asia/Ho_Chi_Minh
baseline:
  backend: memory
metrics:
  enabled: false
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 30, c.Engine.WindowDays)
	assert.Equal(t, BackendMemory, c.Baseline.Backend)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, "Asia/Ho_Chi_Minh", c.Location().String())
	// untouched sections keep defaults
	assert.Equal(t, 8, c.Engine.MaxConcurrency)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"unknown backend":      "baseline:\n  backend: dynamo\n",
		"postgres without dsn": "baseline:\n  backend: postgres\n",
		"bad timezone":         "engine:\n  timezone: Mars/Olympus\n",
		"inverted window":      "engine:\n  activity_start_hour: 22\n  activity_end_hour: 21\n",
		"call beyond deadline": "engine:\n  call_timeout: 10s\n  snapshot_timeout: 5s\n",
		"queue without redis":  "baseline:\n  backend: memory\nredis:\n  enabled: false\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BASELINE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://vp:vp@localhost:5432/vitalpulse?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ENGINE_WINDOW_DAYS", "21")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, c.Baseline.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 21, c.Engine.WindowDays)
}

func TestShippedConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "console", c.Log.Format)
}
