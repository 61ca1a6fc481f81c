package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hay-kot/guestbook/internal/client"
	"github.com/hay-kot/guestbook/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	ServerURL  string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "guestbook", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "guestbook")
}

// serverURL returns the --server flag, falling back to client.server_url.
func (f *Flags) serverURL() string {
	if f.ServerURL != "" {
		return f.ServerURL
	}
	return f.Config.Client.ServerURL
}

// newClient creates an API client for the configured server.
func (f *Flags) newClient() (*client.Client, error) {
	return client.New(f.serverURL(), log.With().Str("component", "client").Logger())
}
