package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"Finalization"}, cfg.Tracker.TerminalStatuses)
	assert.Equal(t, DuplicateLastWins, cfg.Tracker.DuplicatePolicy)
	assert.Equal(t, 12, cfg.Tracker.WindowMonths)
	assert.Equal(t, 25, cfg.Tracker.TopVendors)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MIPWATCH_ADDR", ":9090")
	t.Setenv("MIPWATCH_TERMINAL_STATUSES", "Finalization, On Hold ,Finalization")
	t.Setenv("MIPWATCH_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("MIPWATCH_WINDOW_MONTHS", "6")
	t.Setenv("MIPWATCH_REPORT_CACHE_TTL", "2m")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"Finalization", "On Hold"}, cfg.Tracker.TerminalStatuses)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 6, cfg.Tracker.WindowMonths)
	assert.Equal(t, 2*time.Minute, cfg.Redis.ReportTTL)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non numeric window", key: "MIPWATCH_WINDOW_MONTHS", value: "twelve"},
		{name: "negative vendors", key: "MIPWATCH_TOP_VENDORS", value: "-1"},
		{name: "unknown duplicate policy", key: "MIPWATCH_DUPLICATE_POLICY", value: "first_wins"},
		{name: "bad ttl", key: "MIPWATCH_REPORT_CACHE_TTL", value: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mipwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":7070"
redis:
  url: redis://localhost:6379/0
  report_ttl: 90s
tracker:
  terminal_statuses: ["Finalization", "Withdrawn"]
  duplicate_policy: reject
`), 0o600))

	t.Setenv("MIPWATCH_ADDR", ":6060")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.Server.Addr, "environment wins over the file")
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 90*time.Second, cfg.Redis.ReportTTL)
	assert.Equal(t, []string{"Finalization", "Withdrawn"}, cfg.Tracker.TerminalStatuses)
	assert.Equal(t, DuplicateReject, cfg.Tracker.DuplicatePolicy)
	assert.Equal(t, 25, cfg.Tracker.TopVendors, "unset keys keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
