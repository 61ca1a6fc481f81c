// Package config handles configuration loading and validation for guestbook.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Classifier kinds.
const (
	ClassifierLexicon = "lexicon"
	ClassifierRemote  = "remote"
)

// Store drivers.
const (
	StoreJSONFile = "jsonfile"
	StoreBadger   = "badger"
	StoreRedis    = "redis"
)

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Client     ClientConfig     `yaml:"client"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Store      StoreConfig      `yaml:"store"`
	Moderation ModerationConfig `yaml:"moderation"`
	DataDir    string           `yaml:"-"` // set by caller, not from config file
}

// ServerConfig configures `guestbook serve`.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	TailLimit int    `yaml:"tail_limit"`
}

// ClientConfig configures the composer clients (TUI, post, tail).
type ClientConfig struct {
	ServerURL      string        `yaml:"server_url"`
	TailLimit      int           `yaml:"tail_limit"`
	NoticeDuration time.Duration `yaml:"notice_duration"`
}

// ClassifierConfig selects and tunes the toxicity model.
type ClassifierConfig struct {
	Kind      string  `yaml:"kind"`
	Threshold float64 `yaml:"threshold"`
	// LexiconPaths are doublestar glob patterns for extra lexicon files.
	LexiconPaths []string     `yaml:"lexicon_paths"`
	Remote       RemoteConfig `yaml:"remote"`
}

// RemoteConfig points at an external model server.
type RemoteConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects the message store backend.
type StoreConfig struct {
	Driver string      `yaml:"driver"`
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis store driver.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ModerationConfig toggles the server-side moderation trigger.
type ModerationConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8080",
			TailLimit: 12,
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			TailLimit:      12,
			NoticeDuration: 8 * time.Second,
		},
		Classifier: ClassifierConfig{
			Kind:         ClassifierLexicon,
			Threshold:    0.9,
			LexiconPaths: []string{},
			Remote: RemoteConfig{
				Timeout: 10 * time.Second,
			},
		},
		Store: StoreConfig{
			Driver: StoreJSONFile,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "guestbook",
			},
		},
		Moderation: ModerationConfig{
			Enabled: true,
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

			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.TailLimit == 0 {
		c.Server.TailLimit = defaults.Server.TailLimit
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = defaults.Client.ServerURL
	}
	if c.Client.TailLimit == 0 {
		c.Client.TailLimit = defaults.Client.TailLimit
	}
	if c.Client.NoticeDuration == 0 {
		c.Client.NoticeDuration = defaults.Client.NoticeDuration
	}
	if c.Classifier.Kind == "" {
		c.Classifier.Kind = defaults.Classifier.Kind
	}
	if c.Classifier.Threshold == 0 {
		c.Classifier.Threshold = defaults.Classifier.Threshold
	}
	if c.Classifier.Remote.Timeout == 0 {
		c.Classifier.Remote.Timeout = defaults.Classifier.Remote.Timeout
	}
	if c.Store.Driver == "" {
		c.Store.Driver = defaults.Store.Driver
	}
	if c.Store.Redis.KeyPrefix == "" {
		c.Store.Redis.KeyPrefix = defaults.Store.Redis.KeyPrefix
	}
}

// Validate checks that the configuration is usable. It returns
// criterio.FieldErrors describing every structural problem.
func (c *Config) Validate() error {
	return c.structuralErrors().ToError()
}

// MessagesFile returns the path to the jsonfile store document.
func (c *Config) MessagesFile() string {
	return filepath.Join(c.DataDir, "messages.json")
}

// BadgerDir returns the directory used by the badger store driver.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.DataDir, "badger")
}
