// Package composer implements message submission with the advisory
// toxicity pre-check. It holds no UI state; the TUI and the post command
// apply the returned Result to their own fields.
package composer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/core/toxicity"
)

// KindnessNotice is shown when the advisory check blocks a message.
const KindnessNotice = "Please be kind: your message was not posted."

// DefaultNoticeDuration is how long the kindness notice stays visible.
const DefaultNoticeDuration = 8 * time.Second

// Outcome is what happened to a submission.
type Outcome int

const (
	// OutcomeIgnored means name or text was empty; nothing happened.
	OutcomeIgnored Outcome = iota
	// OutcomeBlocked means the advisory check found the text toxic.
	OutcomeBlocked
	// OutcomeFailed means the write to the store failed.
	OutcomeFailed
	// OutcomeSent means the message was stored.
	OutcomeSent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeFailed:
		return "failed"
	case OutcomeSent:
		return "sent"
	default:
		return "unknown"
	}
}

// Notice is a transient message for the user.
type Notice struct {
	Text     string
	Duration time.Duration
}

// Result tells the caller how to update its form.
type Result struct {
	Outcome   Outcome
	Message   guestbook.Message // set when Outcome is OutcomeSent
	Notice    *Notice
	ClearName bool
	ClearText bool
	Err       error // set when Outcome is OutcomeFailed
}

// Composer submits drafts through a Pusher after the advisory check.
type Composer struct {
	pusher         guestbook.Pusher
	handle         *toxicity.Handle
	noticeDuration time.Duration
	log            zerolog.Logger
}

// New creates a Composer. A zero noticeDuration uses DefaultNoticeDuration.
func New(pusher guestbook.Pusher, handle *toxicity.Handle, noticeDuration time.Duration, log zerolog.Logger) *Composer {
	if noticeDuration <= 0 {
		noticeDuration = DefaultNoticeDuration
	}
	return &Composer{
		pusher:         pusher,
		handle:         handle,
		noticeDuration: noticeDuration,
		log:            log,
	}
}

// Ready reports whether the advisory model has loaded.
func (c *Composer) Ready() bool {
	return c.handle.Ready()
}

// Submit handles a form submission.
func (c *Composer) Submit(ctx context.Context, name, text string) Result {
	if name == "" || text == "" {
		return Result{Outcome: OutcomeIgnored}
	}

	if toxicity.Advise(ctx, c.handle, text, c.log) {
		return Result{
			Outcome:   OutcomeBlocked,
			Notice:    &Notice{Text: KindnessNotice, Duration: c.noticeDuration},
			ClearText: true,
		}
	}

	msg, err := c.pusher.Push(ctx, guestbook.Draft{Name: name, Text: text})
	if err != nil {
		c.log.Error().Err(err).Msg("error writing new message to database")
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	return Result{
		Outcome:   OutcomeSent,
		Message:   msg,
		ClearName: true,
		ClearText: true,
	}
}
