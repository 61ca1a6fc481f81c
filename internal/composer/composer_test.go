package composer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/core/toxicity"
	"github.com/hay-kot/guestbook/internal/core/toxicity/toxicitytest"
)

type mockPusher struct {
	drafts []guestbook.Draft
	err    error
}

func (m *mockPusher) Push(_ context.Context, d guestbook.Draft) (guestbook.Message, error) {
	m.drafts = append(m.drafts, d)
	if m.err != nil {
		return guestbook.Message{}, m.err
	}
	return d.Stamp(time.Now()), nil
}

func loaded(m *toxicitytest.Model) *toxicity.Handle {
	return toxicity.NewLoadedHandle(m, toxicity.DefaultThreshold)
}

func TestSubmit_EmptyFieldsIgnored(t *testing.T) {
	model := toxicitytest.Clean()
	pusher := &mockPusher{}
	c := New(pusher, loaded(model), 0, zerolog.Nop())

	for _, tc := range [][2]string{{"", "hello"}, {"Ada", ""}, {"", ""}} {
		res := c.Submit(context.Background(), tc[0], tc[1])
		assert.Equal(t, Result{Outcome: OutcomeIgnored}, res)
	}

	assert.Empty(t, pusher.drafts)
	assert.Zero(t, model.CallCount(), "classifier not consulted")
}

func TestSubmit_CleanMessageSent(t *testing.T) {
	pusher := &mockPusher{}
	c := New(pusher, loaded(toxicitytest.Clean()), 0, zerolog.Nop())

	res := c.Submit(context.Background(), "Ada", "hello there\nsecond line")

	require.Equal(t, OutcomeSent, res.Outcome)
	assert.True(t, res.ClearName)
	assert.True(t, res.ClearText)
	assert.Nil(t, res.Notice)
	assert.Equal(t, "hello there\nsecond line", res.Message.Text)
	assert.Equal(t, []guestbook.Draft{{Name: "Ada", Text: "hello there\nsecond line"}}, pusher.drafts)
}

func TestSubmit_ToxicMessageBlocked(t *testing.T) {
	pusher := &mockPusher{}
	model := toxicitytest.Toxic("you are an idiot", "identity_attack")
	c := New(pusher, loaded(model), 0, zerolog.Nop())

	res := c.Submit(context.Background(), "Ada", "you are an idiot")

	assert.Equal(t, Result{
		Outcome:   OutcomeBlocked,
		Notice:    &Notice{Text: KindnessNotice, Duration: 8 * time.Second},
		ClearText: true,
		ClearName: false,
	}, res)
	assert.Empty(t, pusher.drafts, "nothing written")
}

func TestSubmit_IndeterminateSent(t *testing.T) {
	pusher := &mockPusher{}
	c := New(pusher, loaded(toxicitytest.Undecided()), 0, zerolog.Nop())

	res := c.Submit(context.Background(), "Ada", "borderline")

	assert.Equal(t, OutcomeSent, res.Outcome)
	assert.Len(t, pusher.drafts, 1)
}

func TestSubmit_FailOpenBeforeLoad(t *testing.T) {
	pusher := &mockPusher{}
	model := toxicitytest.Toxic("you are an idiot", "insult")
	handle := toxicity.NewHandle(model.Loader(nil), toxicity.DefaultThreshold, zerolog.Nop())
	c := New(pusher, handle, 0, zerolog.Nop())

	require.False(t, c.Ready())
	res := c.Submit(context.Background(), "Ada", "you are an idiot")

	assert.Equal(t, OutcomeSent, res.Outcome)
	assert.Zero(t, model.CallCount())
}

func TestSubmit_PushFailureLogged(t *testing.T) {
	var buf bytes.Buffer
	pusher := &mockPusher{err: errors.New("permission denied")}
	c := New(pusher, loaded(toxicitytest.Clean()), 0, zerolog.New(&buf))

	res := c.Submit(context.Background(), "Ada", "hello")

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Nil(t, res.Notice, "no user-facing notice")
	assert.False(t, res.ClearName)
	assert.False(t, res.ClearText)
	assert.ErrorContains(t, res.Err, "permission denied")
	assert.Len(t, pusher.drafts, 1, "no retry")
	assert.Contains(t, buf.String(), "error writing new message to database")
}

func TestNew_NoticeDuration(t *testing.T) {
	c := New(&mockPusher{}, loaded(toxicitytest.Toxic("x", "insult")), 3*time.Second, zerolog.Nop())

	res := c.Submit(context.Background(), "Ada", "x")

	require.NotNil(t, res.Notice)
	assert.Equal(t, 3*time.Second, res.Notice.Duration)
}
