// Package lexicon implements a multi-label toxicity model backed by weighted
// word lists. It stands in for a pretrained classifier: every label reports a
// probability and a tri-state match for each input text.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultLexicon []byte

// Lexicon maps a label to its terms and their weights. A weight is the
// probability that a text containing the term belongs to the label.
type Lexicon map[string]map[string]float64

// Default returns the built-in lexicon.
func Default() (Lexicon, error) {
	return Parse(defaultLexicon)
}

// Parse decodes a YAML lexicon and checks that every weight is in (0, 1).
func Parse(data []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	for label, terms := range lex {
		for term, w := range terms {
			if w <= 0 || w >= 1 {
				return nil, fmt.Errorf("label %q term %q: weight %v must be between 0 and 1", label, term, w)
			}
		}
	}
	return lex, nil
}

// Merge returns a lexicon holding the terms of both. When a term is present
// in both, the higher weight wins.
func (l Lexicon) Merge(other Lexicon) Lexicon {
	out := make(Lexicon, len(l)+len(other))
	for _, src := range []Lexicon{l, other} {
		for label, terms := range src {
			if out[label] == nil {
				out[label] = make(map[string]float64, len(terms))
			}
			for term, w := range terms {
				if w > out[label][term] {
					out[label][term] = w
				}
			}
		}
	}
	return out
}

// Labels returns the label names in sorted order.
func (l Lexicon) Labels() []string {
	labels := make([]string, 0, len(l))
	for label := range l {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// LoadFiles reads every lexicon file matching the glob patterns and merges
// them. Patterns support "**" for recursive matching. Patterns that match
// nothing are not an error.
func LoadFiles(patterns []string) (Lexicon, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	out := Lexicon{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read lexicon: %w", err)
		}
		lex, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = out.Merge(lex)
	}
	return out, nil
}
