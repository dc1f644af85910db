package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/courier/internal/core/broker"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), dataDir)
	require.NoError(t, err)

	want := DefaultConfig()
	want.DataDir = dataDir
	assert.Equal(t, &want, cfg)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 10000, cfg.Queue.MaxDepth)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:8080"
  heartbeat_interval: 5s
broker:
  subscriber_buffer: 8
  overflow_policy: disconnect
  prune_empty_topics: true
queue:
  max_depth: 0
activity:
  enabled: true
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.HeartbeatInterval)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.Broker.SubscriberBuffer)
	assert.Equal(t, broker.OverflowDisconnect, cfg.Broker.OverflowPolicy)
	assert.True(t, cfg.Broker.PruneEmptyTopics)
	assert.Equal(t, 0, cfg.Queue.MaxDepth, "zero depth means unbounded")
	assert.True(t, cfg.Activity.Enabled)
	assert.Equal(t, 1000, cfg.Activity.MaxEntries)
}

func TestLoad_ZeroHeartbeatDisables(t *testing.T) {
	path := writeConfig(t, "server:\n  heartbeat_interval: 0s\n")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Server.HeartbeatInterval)
}

func TestLoad_ParseError(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")

	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "no-port"
broker:
  subscriber_buffer: -1
  overflow_policy: block
queue:
  max_depth: -5
`)

	_, err := Load(path, "")
	require.Error(t, err)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{
		"server.addr",
		"broker.subscriber_buffer",
		"broker.overflow_policy",
		"queue.max_depth",
	}, fields)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"negative heartbeat", func(c *Config) { c.Server.HeartbeatInterval = -time.Second }, "server.heartbeat_interval"},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, "server.shutdown_timeout"},
		{"zero buffer", func(c *Config) { c.Broker.SubscriberBuffer = 0 }, "broker.subscriber_buffer"},
		{"unknown policy", func(c *Config) { c.Broker.OverflowPolicy = "block" }, "broker.overflow_policy"},
		{"zero max entries", func(c *Config) { c.Activity.MaxEntries = 0 }, "activity.max_entries"},
		{"activity without data dir", func(c *Config) {
			c.Activity.Enabled = true
			c.DataDir = ""
		}, "data_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.wantErr, fieldErrs[0].Field)
		})
	}
}

func TestBrokerOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker.PruneEmptyTopics = true
	cfg.Queue.MaxDepth = 3

	assert.Equal(t, broker.Options{
		SubscriberBuffer: 64,
		OverflowPolicy:   broker.OverflowDropOldest,
		PruneEmptyTopics: true,
		MaxQueueDepth:    3,
	}, cfg.BrokerOptions())
}

func TestActivityDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/courier"
	assert.Equal(t, "/var/lib/courier/activity", cfg.ActivityDir())
}
