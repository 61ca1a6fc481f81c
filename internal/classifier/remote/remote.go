// Package remote talks to an external toxicity model server over HTTP.
//
// The server exposes two endpoints:
//
//	GET  /ready     200 once the model weights are loaded
//	POST /classify  {"threshold": 0.9, "texts": ["..."]} -> [{"label": "...", "results": [...]}]
//
// The response follows the prediction layout of the TensorFlow.js toxicity
// model, so a thin sidecar around that model can serve it directly.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hay-kot/guestbook/internal/core/toxicity"
)

const defaultTimeout = 10 * time.Second

// Loader connects to a model server. Load succeeds once the server reports
// ready.
type Loader struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func (l Loader) Load(ctx context.Context, threshold float64) (toxicity.Model, error) {
	base, err := url.Parse(strings.TrimRight(l.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse model server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("model server url %q must be absolute", l.URL)
	}

	client := l.Client
	if client == nil {
		timeout := l.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	m := &Model{base: base, client: client, threshold: threshold}
	if err := m.ready(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Model forwards classification requests to the model server.
type Model struct {
	base      *url.URL
	client    *http.Client
	threshold float64
}

type classifyRequest struct {
	Threshold float64  `json:"threshold"`
	Texts     []string `json:"texts"`
}

func (m *Model) Classify(ctx context.Context, texts []string) ([]toxicity.Prediction, error) {
	body, err := json.Marshal(classifyRequest{Threshold: m.threshold, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.base.JoinPath("classify").String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var preds []toxicity.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&preds); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}

	for _, p := range preds {
		if len(p.Results) != len(texts) {
			return nil, fmt.Errorf("label %q: got %d results for %d texts", p.Label, len(p.Results), len(texts))
		}
	}
	return preds, nil
}

func (m *Model) ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.base.JoinPath("ready").String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("model server unreachable: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server not ready: %w", statusError(resp))
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
