// Package classifier builds the toxicity model handle selected by
// configuration.
package classifier

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hay-kot/guestbook/internal/classifier/lexicon"
	"github.com/hay-kot/guestbook/internal/classifier/remote"
	"github.com/hay-kot/guestbook/internal/core/config"
	"github.com/hay-kot/guestbook/internal/core/toxicity"
)

// NewLoader returns the loader for cfg.Kind.
func NewLoader(cfg config.ClassifierConfig, log zerolog.Logger) (toxicity.Loader, error) {
	switch cfg.Kind {
	case config.ClassifierLexicon:
		return lexicon.Loader{Patterns: cfg.LexiconPaths, Log: log}, nil
	case config.ClassifierRemote:
		return remote.Loader{URL: cfg.Remote.URL, Timeout: cfg.Remote.Timeout}, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", cfg.Kind)
	}
}

// NewHandle returns an unloaded handle for the configured classifier.
func NewHandle(cfg config.ClassifierConfig, log zerolog.Logger) (*toxicity.Handle, error) {
	log = log.With().Str("component", "classifier").Str("kind", cfg.Kind).Logger()

	loader, err := NewLoader(cfg, log)
	if err != nil {
		return nil, err
	}
	return toxicity.NewHandle(loader, cfg.Threshold, log), nil
}
