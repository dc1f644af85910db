package commands

import (
	"os"
	"path/filepath"

	"github.com/hay-kot/courier/internal/client"
	"github.com/hay-kot/courier/internal/core/config"
)

// DefaultURL is the broker address used by client commands.
const DefaultURL = "http://localhost:3000"

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	URL        string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// Client returns an API client for the broker at --url.
func (f *Flags) Client() *client.Client {
	return client.New(f.URL, nil)
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "courier", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "courier")
}
