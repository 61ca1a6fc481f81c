// Package moderator enforces moderation on newly created messages.
package moderator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hay-kot/guestbook/internal/core/toxicity"
	"github.com/hay-kot/guestbook/internal/realtime"
)

// Remover deletes a message by key.
type Remover interface {
	Remove(ctx context.Context, id string) error
}

// Trigger re-checks every created message and removes the toxic ones. It is
// registered with realtime.DB.OnCreate.
type Trigger struct {
	handle  *toxicity.Handle
	remover Remover
	log     zerolog.Logger
}

// New creates a Trigger. The handle is shared with any other component in
// the process and loaded on the first invocation.
func New(handle *toxicity.Handle, remover Remover, log zerolog.Logger) *Trigger {
	return &Trigger{handle: handle, remover: remover, log: log}
}

// Handle is a realtime.TriggerFunc. Model and classification errors are
// returned and the message is kept. A failed removal is logged and the
// message is kept.
func (t *Trigger) Handle(ctx context.Context, snap realtime.Snapshot, inv realtime.Invocation) error {
	log := t.log.With().Str("event_id", inv.EventID).Str("key", snap.Key).Logger()

	if !snap.Exists() {
		log.Debug().Msg("message already gone, nothing to moderate")
		return nil
	}

	msg := *snap.Value
	log.Info().Str("name", msg.Name).Str("text", msg.Text).Msg("retrieved message")

	model, err := t.handle.Load(ctx)
	if err != nil {
		return err
	}

	toxic, err := toxicity.IsToxic(ctx, model, msg.Text)
	if err != nil {
		return err
	}

	if !toxic {
		log.Info().Msg("no toxicity found, keeping message")
		return nil
	}

	log.Info().Msg("toxicity found, removing message")
	if err := t.remover.Remove(ctx, snap.Key); err != nil {
		log.Error().Err(err).Msg("failed to remove toxic message")
	}
	return nil
}
