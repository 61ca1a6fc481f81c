package toxicity

import (
	"context"

	"github.com/rs/zerolog"
)

// Advise runs the advisory pre-send check. It fails open: when the model has
// not loaded yet, or classification fails, the text is reported as not toxic.
// It never waits for the model to load.
func Advise(ctx context.Context, h *Handle, text string, log zerolog.Logger) bool {
	model, ok := h.Model()
	if !ok {
		log.Debug().Msg("no model found")
		return false
	}

	predictions, err := model.Classify(ctx, []string{text})
	if err != nil {
		log.Warn().Err(err).Msg("advisory check failed, allowing message")
		return false
	}

	if e := log.Debug(); e.Enabled() {
		for _, p := range predictions {
			for _, r := range p.Results {
				e = e.Str(p.Label, matchLabel(r.Match))
			}
		}
		e.Msg("classified draft")
	}

	toxic := Verdict(predictions)

	if toxic {
		log.Debug().Msg("toxicity found")
	} else {
		log.Debug().Msg("no toxicity found")
	}
	return toxic
}

func matchLabel(m *bool) string {
	switch {
	case m == nil:
		return "null"
	case *m:
		return "true"
	default:
		return "false"
	}
}
