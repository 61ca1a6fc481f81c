// Package toxicitytest provides canned toxicity models for tests.
package toxicitytest

import (
	"context"
	"sync"

	"github.com/hay-kot/guestbook/internal/core/toxicity"
)

// Labels mirrors the label set of the toxicity model.
var Labels = []string{
	"identity_attack",
	"insult",
	"obscene",
	"severe_toxicity",
	"sexual_explicit",
	"threat",
	"toxicity",
}

// Match values for building predictions.
var (
	True  = ptr(true)
	False = ptr(false)
)

// Model returns canned per-label matches keyed by input text. Texts without
// an entry get Default for every label.
type Model struct {
	mu      sync.Mutex
	Matches map[string]map[string]*bool
	Default *bool
	Err     error
	Calls   []string
}

// Toxic returns a model where text matches label and every other label is
// confidently clean.
func Toxic(text, label string) *Model {
	return &Model{
		Matches: map[string]map[string]*bool{text: {label: True}},
		Default: False,
	}
}

// Clean returns a model that reports every text as confidently clean.
func Clean() *Model {
	return &Model{Default: False}
}

// Undecided returns a model that is never confident either way.
func Undecided() *Model {
	return &Model{Default: nil}
}

func (m *Model) Classify(_ context.Context, texts []string) ([]toxicity.Prediction, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, texts...)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	preds := make([]toxicity.Prediction, len(Labels))
	for i, label := range Labels {
		preds[i].Label = label
		for _, text := range texts {
			match := m.Default
			if byLabel, ok := m.Matches[text]; ok {
				if v, ok := byLabel[label]; ok {
					match = v
				}
			}
			preds[i].Results = append(preds[i].Results, result(match))
		}
	}
	return preds, nil
}

// CallCount returns how many texts were classified.
func (m *Model) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Loader returns a loader that hands out m and counts loads.
func (m *Model) Loader(loads *int) toxicity.LoaderFunc {
	var mu sync.Mutex
	return func(context.Context, float64) (toxicity.Model, error) {
		mu.Lock()
		defer mu.Unlock()
		if loads != nil {
			*loads++
		}
		return m, nil
	}
}

func result(match *bool) toxicity.Result {
	switch {
	case match == nil:
		return toxicity.Result{Match: nil, Probabilities: [2]float64{0.5, 0.5}}
	case *match:
		return toxicity.Result{Match: match, Probabilities: [2]float64{0.02, 0.98}}
	default:
		return toxicity.Result{Match: match, Probabilities: [2]float64{0.98, 0.02}}
	}
}

func ptr(b bool) *bool { return &b }
