// Package toxicity holds the moderation decision procedure shared by the
// advisory check in the composer and the authoritative check in the
// moderation trigger. Both call sites must reach the same verdict for the
// same text, so the rule lives here and nowhere else.
package toxicity

import (
	"context"
	"errors"
	"fmt"
)

// DefaultThreshold is the minimum prediction confidence for a label to count
// as a match either way.
const DefaultThreshold = 0.9

// ErrNotLoaded is returned when a model is requested before it has loaded.
var ErrNotLoaded = errors.New("toxicity model not loaded")

// Result is the prediction for one input text under one label.
// Match is nil when neither probability reaches the threshold.
type Result struct {
	Match         *bool      `json:"match"`
	Probabilities [2]float64 `json:"probabilities"`
}

// Prediction groups the results of one label for every input text.
type Prediction struct {
	Label   string   `json:"label"`
	Results []Result `json:"results"`
}

// Model classifies a batch of texts. The returned predictions hold one
// result per input text for every label the model knows.
type Model interface {
	Classify(ctx context.Context, texts []string) ([]Prediction, error)
}

// Loader produces a ready model for the given confidence threshold.
type Loader interface {
	Load(ctx context.Context, threshold float64) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, threshold float64) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, threshold float64) (Model, error) {
	return f(ctx, threshold)
}

// MatchFor turns the probability p of a label into a tri-state match. A
// probability equal to the threshold is not confident either way.
func MatchFor(p, threshold float64) *bool {
	switch {
	case p > threshold:
		return ptr(true)
	case 1-p > threshold:
		return ptr(false)
	default:
		return nil
	}
}

// Verdict reports whether any result of any label is a confident match.
// Indeterminate results count as no match.
func Verdict(predictions []Prediction) bool {
	for _, p := range predictions {
		for _, r := range p.Results {
			if r.Match != nil && *r.Match {
				return true
			}
		}
	}
	return false
}

// IsToxic classifies a single text and applies Verdict.
func IsToxic(ctx context.Context, model Model, text string) (bool, error) {
	predictions, err := model.Classify(ctx, []string{text})
	if err != nil {
		return false, fmt.Errorf("classify: %w", err)
	}
	return Verdict(predictions), nil
}

func ptr[T any](v T) *T {
	return &v
}
