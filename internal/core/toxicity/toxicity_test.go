package toxicity_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/guestbook/internal/core/toxicity"
	"github.com/hay-kot/guestbook/internal/core/toxicity/toxicitytest"
)

func predictions(matches ...*bool) []toxicity.Prediction {
	preds := make([]toxicity.Prediction, len(matches))
	for i, m := range matches {
		preds[i] = toxicity.Prediction{
			Label:   toxicitytest.Labels[i],
			Results: []toxicity.Result{{Match: m}},
		}
	}
	return preds
}

func TestVerdict(t *testing.T) {
	tr, fa := toxicitytest.True, toxicitytest.False

	tests := []struct {
		name  string
		preds []toxicity.Prediction
		want  bool
	}{
		{name: "all false", preds: predictions(fa, fa, fa, fa, fa, fa, fa), want: false},
		{name: "all indeterminate", preds: predictions(nil, nil, nil, nil, nil, nil, nil), want: false},
		{name: "false and indeterminate", preds: predictions(fa, nil, fa, nil, fa, nil, fa), want: false},
		{name: "one true among false", preds: predictions(tr, fa, fa, fa, fa, fa, fa), want: true},
		{name: "one true among indeterminate", preds: predictions(nil, nil, nil, nil, nil, nil, tr), want: true},
		{name: "empty", preds: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toxicity.Verdict(tt.preds))
		})
	}
}

func TestMatchFor(t *testing.T) {
	tests := []struct {
		p    float64
		want *bool
	}{
		{p: 0.95, want: toxicitytest.True},
		{p: 0.9, want: nil},
		{p: 0.1, want: nil},
		{p: 0.91, want: toxicitytest.True},
		{p: 0.05, want: toxicitytest.False},
		{p: 0.5, want: nil},
		{p: 0.89, want: nil},
	}

	for _, tt := range tests {
		got := toxicity.MatchFor(tt.p, 0.9)
		if tt.want == nil {
			assert.Nil(t, got, "p=%v", tt.p)
			continue
		}
		require.NotNil(t, got, "p=%v", tt.p)
		assert.Equal(t, *tt.want, *got, "p=%v", tt.p)
	}
}

func TestIsToxic(t *testing.T) {
	ctx := context.Background()
	model := toxicitytest.Toxic("you are an idiot", "identity_attack")

	toxic, err := toxicity.IsToxic(ctx, model, "you are an idiot")
	require.NoError(t, err)
	assert.True(t, toxic)

	toxic, err = toxicity.IsToxic(ctx, model, "hello there")
	require.NoError(t, err)
	assert.False(t, toxic)

	assert.Equal(t, []string{"you are an idiot", "hello there"}, model.Calls)
}

func TestIsToxic_Idempotent(t *testing.T) {
	ctx := context.Background()
	model := toxicitytest.Toxic("you are an idiot", "insult")

	first, err := toxicity.IsToxic(ctx, model, "you are an idiot")
	require.NoError(t, err)
	second, err := toxicity.IsToxic(ctx, model, "you are an idiot")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestIsToxic_Error(t *testing.T) {
	model := &toxicitytest.Model{Err: errors.New("boom")}

	toxic, err := toxicity.IsToxic(context.Background(), model, "hi")
	assert.False(t, toxic)
	assert.ErrorContains(t, err, "boom")
}

func TestHandle_LoadsOnce(t *testing.T) {
	model := toxicitytest.Clean()
	loads := 0
	h := toxicity.NewHandle(model.Loader(&loads), 0.9, zerolog.Nop())

	assert.False(t, h.Ready())
	_, ok := h.Model()
	assert.False(t, ok)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loads)
	assert.True(t, h.Ready())
	assert.Equal(t, 0.9, h.Threshold())
}

func TestHandle_RetriesFailedLoad(t *testing.T) {
	attempts := 0
	loader := toxicity.LoaderFunc(func(context.Context, float64) (toxicity.Model, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("weights unavailable")
		}
		return toxicitytest.Clean(), nil
	})
	h := toxicity.NewHandle(loader, 0.9, zerolog.Nop())

	_, err := h.Load(context.Background())
	require.ErrorContains(t, err, "weights unavailable")
	assert.False(t, h.Ready())

	_, err = h.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Ready())
	assert.Equal(t, 2, attempts)
}

func TestHandle_NoLoader(t *testing.T) {
	h := toxicity.NewHandle(nil, 0.9, zerolog.Nop())

	_, err := h.Load(context.Background())
	assert.ErrorIs(t, err, toxicity.ErrNotLoaded)
}

func TestAdvise_FailsOpenBeforeLoad(t *testing.T) {
	model := toxicitytest.Toxic("you are an idiot", "insult")
	h := toxicity.NewHandle(model.Loader(nil), 0.9, zerolog.Nop())

	assert.False(t, toxicity.Advise(context.Background(), h, "you are an idiot", zerolog.Nop()))
	assert.Equal(t, 0, model.CallCount(), "advisory check must not wait for the model")
}

func TestAdvise_FailsOpenOnError(t *testing.T) {
	h := toxicity.NewLoadedHandle(&toxicitytest.Model{Err: errors.New("boom")}, 0.9)

	assert.False(t, toxicity.Advise(context.Background(), h, "anything", zerolog.Nop()))
}

func TestAdvise_LoadedModel(t *testing.T) {
	h := toxicity.NewLoadedHandle(toxicitytest.Toxic("you are an idiot", "identity_attack"), 0.9)
	ctx := context.Background()

	assert.True(t, toxicity.Advise(ctx, h, "you are an idiot", zerolog.Nop()))
	assert.False(t, toxicity.Advise(ctx, h, "hello there", zerolog.Nop()))
}

func TestAdvise_IndeterminateIsNotToxic(t *testing.T) {
	h := toxicity.NewLoadedHandle(toxicitytest.Undecided(), 0.9)

	assert.False(t, toxicity.Advise(context.Background(), h, "hmm", zerolog.Nop()))
}

func TestAdvise_LogsLabelMatches(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	h := toxicity.NewLoadedHandle(toxicitytest.Toxic("you are an idiot", "insult"), 0.9)

	require.True(t, toxicity.Advise(context.Background(), h, "you are an idiot", log))

	assert.Contains(t, buf.String(), `"insult":"true"`)
	assert.Contains(t, buf.String(), "toxicity found")
}
