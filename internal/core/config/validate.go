package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

func (c *Config) structuralErrors() criterio.FieldErrorsBuilder {
	var errs criterio.FieldErrorsBuilder
	add := func(field, format string, args ...any) {
		errs = errs.Append(field, fmt.Errorf(format, args...))
	}

	if c.DataDir == "" {
		add("data_dir", "data directory cannot be empty")
	}

	if c.Server.TailLimit < 1 {
		add("server.tail_limit", "must be at least 1")
	}
	if c.Client.TailLimit < 1 {
		add("client.tail_limit", "must be at least 1")
	}
	if c.Client.NoticeDuration < 0 {
		add("client.notice_duration", "cannot be negative")
	}

	// Below 0.5 a probability could clear both the toxic and the clean bar.
	if c.Classifier.Threshold < 0.5 || c.Classifier.Threshold > 1 {
		add("classifier.threshold", "must be between 0.5 and 1, got %g", c.Classifier.Threshold)
	}

	switch c.Classifier.Kind {
	case ClassifierLexicon:
	case ClassifierRemote:
		if c.Classifier.Remote.URL == "" {
			add("classifier.remote.url", "required when classifier.kind is %q", ClassifierRemote)
		}
	default:
		add("classifier.kind", "unknown classifier %q (use lexicon or remote)", c.Classifier.Kind)
	}

	switch c.Store.Driver {
	case StoreJSONFile, StoreBadger:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			add("store.redis.addr", "required when store.driver is %q", StoreRedis)
		}
	default:
		add("store.driver", "unknown driver %q (use jsonfile, badger or redis)", c.Store.Driver)
	}

	return errs
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this also checks addresses, URLs, glob patterns, and
// file access.
func (c *Config) ValidateDeep(configPath string) error {
	errs := c.structuralErrors()
	add := func(field string, err error) {
		errs = errs.Append(field, err)
	}

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil && info.IsDir() {
			add("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			add("config_file", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil && !info.IsDir() {
			add("data_dir", fmt.Errorf("%s exists but is not a directory", c.DataDir))
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			add("data_dir", fmt.Errorf("cannot access %s: %w", c.DataDir, err))
		}
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", fmt.Errorf("invalid listen address %q: %w", c.Server.Addr, err))
	}

	if err := checkHTTPURL(c.Client.ServerURL); err != nil {
		add("client.server_url", err)
	}
	if c.Classifier.Kind == ClassifierRemote && c.Classifier.Remote.URL != "" {
		if err := checkHTTPURL(c.Classifier.Remote.URL); err != nil {
			add("classifier.remote.url", err)
		}
	}

	for i, pattern := range c.Classifier.LexiconPaths {
		if !doublestar.ValidatePattern(pattern) {
			add(fmt.Sprintf("classifier.lexicon_paths[%d]", i), fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}

	return errs.ToError()
}

// Warnings returns non-fatal issues worth surfacing to the user.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if !c.Moderation.Enabled {
		warnings = append(warnings, ValidationWarning{
			Category: "Moderation",
			Message:  "moderation is disabled; toxic messages will only be caught by the client check",
		})
	}

	if c.Classifier.Kind == ClassifierLexicon {
		for _, pattern := range c.Classifier.LexiconPaths {
			if !doublestar.ValidatePattern(pattern) {
				continue
			}
			matches, err := doublestar.FilepathGlob(pattern)
			if err == nil && len(matches) == 0 {
				warnings = append(warnings, ValidationWarning{
					Category: "Classifier",
					Item:     pattern,
					Message:  "lexicon pattern matches no files",
				})
			}
		}
	}

	if c.Store.Driver == StoreBadger && c.Moderation.Enabled {
		warnings = append(warnings, ValidationWarning{
			Category: "Store",
			Item:     "badger",
			Message:  "badger holds an exclusive lock; only one serve process can use the data directory",
		})
	}

	return warnings
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
