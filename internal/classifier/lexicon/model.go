package lexicon

import (
	"context"
	"fmt"
	"sort"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hay-kot/guestbook/internal/core/toxicity"
)

// baseRate is the probability assigned to a label when none of its terms
// match.
const baseRate = 0.01

// Model scores texts against a lexicon.
type Model struct {
	threshold float64
	labels    []labelMatcher
}

type labelMatcher struct {
	name    string
	machine *goahocorasick.Machine
	weights map[string]float64
}

// New builds one Aho-Corasick automaton per label.
func New(lex Lexicon, threshold float64) (*Model, error) {
	m := &Model{threshold: threshold}

	for _, label := range lex.Labels() {
		lm := labelMatcher{name: label, weights: map[string]float64{}}

		for term, w := range lex[label] {
			key := string(normalize(term))
			if key == "" {
				continue
			}
			lm.weights[key] = max(lm.weights[key], w)
		}

		if len(lm.weights) > 0 {
			keys := lo.Keys(lm.weights)
			sort.Strings(keys)
			patterns := lo.Map(keys, func(k string, _ int) []rune { return []rune(k) })

			machine := new(goahocorasick.Machine)
			if err := machine.Build(patterns); err != nil {
				return nil, fmt.Errorf("build matcher for %q: %w", label, err)
			}
			lm.machine = machine
		}

		m.labels = append(m.labels, lm)
	}

	return m, nil
}

// Classify returns one prediction per label with one result per text.
func (m *Model) Classify(ctx context.Context, texts []string) ([]toxicity.Prediction, error) {
	preds := make([]toxicity.Prediction, len(m.labels))
	for i, lm := range m.labels {
		preds[i] = toxicity.Prediction{Label: lm.name, Results: make([]toxicity.Result, 0, len(texts))}
	}

	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		norm := normalize(text)
		for i, lm := range m.labels {
			p := lm.probability(norm)
			preds[i].Results = append(preds[i].Results, toxicity.Result{
				Match:         toxicity.MatchFor(p, m.threshold),
				Probabilities: [2]float64{1 - p, p},
			})
		}
	}

	return preds, nil
}

// probability combines the weights of every distinct matched term with a
// noisy-OR over the base rate.
func (lm labelMatcher) probability(norm []rune) float64 {
	clean := 1 - baseRate
	if lm.machine == nil || len(norm) == 0 {
		return 1 - clean
	}

	seen := map[string]bool{}
	for _, term := range lm.machine.MultiPatternSearch(norm, false) {
		start := term.Pos
		end := start + len(term.Word)
		if !isWordBoundary(norm, start, end) {
			continue
		}

		key := string(term.Word)
		if seen[key] {
			continue
		}
		seen[key] = true
		clean *= 1 - lm.weights[key]
	}

	return 1 - clean
}

func isWordBoundary(norm []rune, start, end int) bool {
	if start < 0 || end > len(norm) {
		return false
	}
	if start > 0 && norm[start-1] != ' ' {
		return false
	}
	if end < len(norm) && norm[end] != ' ' {
		return false
	}
	return true
}

// Loader loads the built-in lexicon merged with any lexicon files matching
// Patterns.
type Loader struct {
	Patterns []string
	Log      zerolog.Logger
}

func (l Loader) Load(ctx context.Context, threshold float64) (toxicity.Model, error) {
	lex, err := Default()
	if err != nil {
		return nil, err
	}

	if len(l.Patterns) > 0 {
		extra, err := LoadFiles(l.Patterns)
		if err != nil {
			return nil, err
		}
		l.Log.Debug().Strs("labels", extra.Labels()).Msg("merged lexicon files")
		lex = lex.Merge(extra)
	}

	return New(lex, threshold)
}
