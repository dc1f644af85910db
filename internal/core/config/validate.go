package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/hay-kot/courier/internal/core/broker"
)

// ValidationResult holds the outcome of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
	Checks   []ValidationCheck   `json:"checks"`
}

// ValidationError represents a configuration error.
type ValidationError struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidationCheck represents a successful validation check.
type ValidationCheck struct {
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Details  []string `json:"details,omitempty"`
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ErrorCount returns the number of errors.
func (r *ValidationResult) ErrorCount() int {
	return len(r.Errors)
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this checks file access and flags settings that are
// legal but likely to cause trouble at runtime.
func (c *Config) ValidateDeep(configPath string) *ValidationResult {
	result := &ValidationResult{}

	c.validateFileAccess(result, configPath)
	c.validateServer(result)
	c.validateBroker(result)
	c.validateQueue(result)

	return result
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(result *ValidationResult, configPath string) {
	details := []string{}

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			details = append(details, fmt.Sprintf("Config file: %s (found)", configPath))
			if info.IsDir() {
				result.Errors = append(result.Errors, ValidationError{
					Category: "File Access",
					Item:     "config file",
					Message:  fmt.Sprintf("%s is a directory, not a file", configPath),
				})
			}
		} else if os.IsNotExist(err) {
			details = append(details, fmt.Sprintf("Config file: %s (not found, using defaults)", configPath))
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Category: "File Access",
				Item:     "config file",
				Message:  fmt.Sprintf("cannot access %s: %v", configPath, err),
			})
		}
	}

	if c.Activity.Enabled {
		if c.DataDir == "" {
			result.Errors = append(result.Errors, ValidationError{
				Category: "File Access",
				Item:     "data_dir",
				Message:  "activity log is enabled but no data directory is set",
				Fix:      "Pass --data-dir or set COURIER_DATA_DIR",
			})
		} else if info, err := os.Stat(c.DataDir); err == nil {
			if !info.IsDir() {
				result.Errors = append(result.Errors, ValidationError{
					Category: "File Access",
					Item:     "data_dir",
					Message:  fmt.Sprintf("%s exists but is not a directory", c.DataDir),
				})
			} else {
				details = append(details, fmt.Sprintf("Data directory: %s (exists)", c.DataDir))
			}
		} else if os.IsNotExist(err) {
			details = append(details, fmt.Sprintf("Data directory: %s (will be created)", c.DataDir))
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Category: "File Access",
				Item:     "data_dir",
				Message:  fmt.Sprintf("cannot access %s: %v", c.DataDir, err),
			})
		}
	}

	if len(details) > 0 {
		result.Checks = append(result.Checks, ValidationCheck{
			Category: "File Access",
			Message:  "File paths validated",
			Details:  details,
		})
	}
}

// validateServer checks the listen address and stream timing.
func (c *Config) validateServer(result *ValidationResult) {
	_, port, err := net.SplitHostPort(c.Server.Addr)
	if err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Category: "Server",
			Item:     "server.addr",
			Message:  fmt.Sprintf("invalid listen address %q: %v", c.Server.Addr, err),
			Fix:      "Use host:port or :port, for example \":3000\"",
		})
		return
	}

	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Category: "Server",
			Item:     "server.addr",
			Message:  fmt.Sprintf("invalid port %q", port),
			Fix:      "Use a numeric port between 0 and 65535",
		})
		return
	}

	details := []string{
		fmt.Sprintf("Listen address: %s", c.Server.Addr),
		fmt.Sprintf("Shutdown timeout: %s", c.Server.ShutdownTimeout),
	}

	if c.Server.HeartbeatInterval == 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Category: "Server",
			Item:     "server.heartbeat_interval",
			Message:  "heartbeats disabled; idle event streams may be closed by proxies",
		})
	} else {
		details = append(details, fmt.Sprintf("Heartbeat interval: %s", c.Server.HeartbeatInterval))
	}

	result.Checks = append(result.Checks, ValidationCheck{
		Category: "Server",
		Message:  "Listener configured",
		Details:  details,
	})
}

// validateBroker checks subscriber buffering and the overflow policy.
func (c *Config) validateBroker(result *ValidationResult) {
	if !c.Broker.OverflowPolicy.Valid() {
		result.Errors = append(result.Errors, ValidationError{
			Category: "Broker",
			Item:     "broker.overflow_policy",
			Message:  fmt.Sprintf("unknown policy %q", c.Broker.OverflowPolicy),
			Fix:      "Use 'drop_oldest' or 'disconnect'",
		})
		return
	}

	if c.Broker.SubscriberBuffer < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Category: "Broker",
			Item:     "broker.subscriber_buffer",
			Message:  "must be at least 1",
		})
		return
	}

	if c.Broker.SubscriberBuffer == 1 && c.Broker.OverflowPolicy == broker.OverflowDisconnect {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Category: "Broker",
			Item:     "broker.subscriber_buffer",
			Message:  "a buffer of 1 with the disconnect policy drops subscribers on any burst",
		})
	}

	details := []string{
		fmt.Sprintf("Subscriber buffer: %d", c.Broker.SubscriberBuffer),
		fmt.Sprintf("Overflow policy: %s", c.Broker.OverflowPolicy),
		fmt.Sprintf("Prune empty topics: %t", c.Broker.PruneEmptyTopics),
	}
	result.Checks = append(result.Checks, ValidationCheck{
		Category: "Broker",
		Message:  "Publish/subscribe configured",
		Details:  details,
	})
}

// validateQueue checks the point-to-point queue bound.
func (c *Config) validateQueue(result *ValidationResult) {
	switch {
	case c.Queue.MaxDepth < 0:
		result.Errors = append(result.Errors, ValidationError{
			Category: "Queue",
			Item:     "queue.max_depth",
			Message:  "must not be negative",
			Fix:      "Use 0 for an unbounded queue",
		})
	case c.Queue.MaxDepth == 0:
		result.Warnings = append(result.Warnings, ValidationWarning{
			Category: "Queue",
			Item:     "queue.max_depth",
			Message:  "queue is unbounded; memory grows until messages are received",
		})
	default:
		result.Checks = append(result.Checks, ValidationCheck{
			Category: "Queue",
			Message:  fmt.Sprintf("Queue holds at most %d message(s)", c.Queue.MaxDepth),
		})
	}
}
