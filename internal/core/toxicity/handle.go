package toxicity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Handle owns a lazily loaded model. It is created once per process and
// passed to whoever needs to classify. After a successful load the model is
// read-only and safe for concurrent use.
type Handle struct {
	loader    Loader
	threshold float64
	log       zerolog.Logger

	model  atomic.Pointer[loaded]
	loadMu sync.Mutex
}

type loaded struct {
	model Model
}

// NewHandle returns a handle that loads its model from loader on first use.
func NewHandle(loader Loader, threshold float64, log zerolog.Logger) *Handle {
	return &Handle{loader: loader, threshold: threshold, log: log}
}

// NewLoadedHandle returns a handle around an already loaded model.
func NewLoadedHandle(model Model, threshold float64) *Handle {
	h := &Handle{threshold: threshold, log: zerolog.Nop()}
	h.model.Store(&loaded{model: model})
	return h
}

// Threshold returns the confidence threshold the model was loaded with.
func (h *Handle) Threshold() float64 {
	return h.threshold
}

// Ready reports whether the model has finished loading.
func (h *Handle) Ready() bool {
	return h.model.Load() != nil
}

// Model returns the loaded model without blocking.
func (h *Handle) Model() (Model, bool) {
	l := h.model.Load()
	if l == nil {
		return nil, false
	}
	return l.model, true
}

// Load returns the model, loading it if needed. Concurrent callers share a
// single load. A failed load is retried by the next call.
func (h *Handle) Load(ctx context.Context) (Model, error) {
	if m, ok := h.Model(); ok {
		return m, nil
	}

	h.loadMu.Lock()
	defer h.loadMu.Unlock()

	if m, ok := h.Model(); ok {
		return m, nil
	}
	if h.loader == nil {
		return nil, ErrNotLoaded
	}

	m, err := h.loader.Load(ctx, h.threshold)
	if err != nil {
		return nil, fmt.Errorf("load toxicity model: %w", err)
	}

	h.model.Store(&loaded{model: m})
	h.log.Info().Float64("threshold", h.threshold).Msg("model loaded")
	return m, nil
}

// Start loads the model in the background. Errors are logged; callers that
// need the model later can still call Load.
func (h *Handle) Start(ctx context.Context) {
	go func() {
		if _, err := h.Load(ctx); err != nil {
			h.log.Error().Err(err).Msg("background model load failed")
		}
	}()
}
