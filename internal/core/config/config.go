// Package config handles configuration loading and validation for courier.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/courier/internal/core/broker"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Broker   BrokerConfig   `yaml:"broker"`
	Queue    QueueConfig    `yaml:"queue"`
	Activity ActivityConfig `yaml:"activity"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// HeartbeatInterval is the period of keepalive comments on event
	// streams. Zero disables them.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// BrokerConfig holds publish/subscribe settings.
type BrokerConfig struct {
	SubscriberBuffer int                   `yaml:"subscriber_buffer"`
	OverflowPolicy   broker.OverflowPolicy `yaml:"overflow_policy"`
	PruneEmptyTopics bool                  `yaml:"prune_empty_topics"`
}

// QueueConfig holds point-to-point queue settings.
type QueueConfig struct {
	MaxDepth int `yaml:"max_depth"` // 0 = unbounded
}

// ActivityConfig controls the on-disk activity log.
type ActivityConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":3000",
			ShutdownTimeout:   10 * time.Second,
			HeartbeatInterval: 30 * time.Second,
		},
		Broker: BrokerConfig{
			SubscriberBuffer: 64,
			OverflowPolicy:   broker.OverflowDropOldest,
		},
		Queue: QueueConfig{
			MaxDepth: 10000,
		},
		Activity: ActivityConfig{
			MaxEntries: 1000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for options where the zero value is not
// meaningful. Zero heartbeat_interval and max_depth are valid settings and are
// left alone.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Broker.SubscriberBuffer == 0 {
		c.Broker.SubscriberBuffer = defaults.Broker.SubscriberBuffer
	}
	if c.Broker.OverflowPolicy == "" {
		c.Broker.OverflowPolicy = defaults.Broker.OverflowPolicy
	}
	if c.Activity.MaxEntries == 0 {
		c.Activity.MaxEntries = defaults.Activity.MaxEntries
	}
}

// Validate checks that the configuration is valid. Problems are reported as
// criterio.FieldErrors keyed by their YAML path.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if err := validateAddr(c.Server.Addr); err != nil {
		errs = errs.Append("server.addr", err)
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = errs.Append("server.shutdown_timeout", errors.New("must not be negative"))
	}
	if c.Server.HeartbeatInterval < 0 {
		errs = errs.Append("server.heartbeat_interval", errors.New("must not be negative"))
	}
	if c.Broker.SubscriberBuffer < 1 {
		errs = errs.Append("broker.subscriber_buffer", errors.New("must be at least 1"))
	}
	if !c.Broker.OverflowPolicy.Valid() {
		errs = errs.Append("broker.overflow_policy", fmt.Errorf("unknown policy %q, use %q or %q",
			c.Broker.OverflowPolicy, broker.OverflowDropOldest, broker.OverflowDisconnect))
	}
	if c.Queue.MaxDepth < 0 {
		errs = errs.Append("queue.max_depth", errors.New("must not be negative"))
	}
	if c.Activity.MaxEntries < 1 {
		errs = errs.Append("activity.max_entries", errors.New("must be at least 1"))
	}
	if c.Activity.Enabled && c.DataDir == "" {
		errs = errs.Append("data_dir", errors.New("required when activity is enabled"))
	}

	return errs.ToError()
}

// BrokerOptions converts the broker and queue settings into broker options.
func (c *Config) BrokerOptions() broker.Options {
	return broker.Options{
		SubscriberBuffer: c.Broker.SubscriberBuffer,
		OverflowPolicy:   c.Broker.OverflowPolicy,
		PruneEmptyTopics: c.Broker.PruneEmptyTopics,
		MaxQueueDepth:    c.Queue.MaxDepth,
	}
}

// ActivityDir returns the directory holding the activity log.
func (c *Config) ActivityDir() string {
	return filepath.Join(c.DataDir, "activity")
}

func validateAddr(addr string) error {
	if addr == "" {
		return errors.New("cannot be empty")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	return nil
}
