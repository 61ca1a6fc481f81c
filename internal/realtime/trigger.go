package realtime

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

// Snapshot is the state of a record when a trigger invocation starts. Value
// is nil when the record no longer exists.
type Snapshot struct {
	Key   string
	Value *guestbook.Message
}

// Exists reports whether the snapshot carries a record.
func (s Snapshot) Exists() bool { return s.Value != nil }

// Invocation describes a single trigger run.
type Invocation struct {
	EventID   string
	Timestamp time.Time
	// Resource is the path of the record that fired the trigger.
	Resource string
}

// TriggerFunc handles the creation of a record. A returned error is logged;
// the record is left as it is.
type TriggerFunc func(ctx context.Context, snap Snapshot, inv Invocation) error

// OnCreate registers fn to run once for every message pushed after the call.
// Each invocation runs in its own goroutine, detached from the pushing
// caller, and is never cancelled.
func (d *DB) OnCreate(fn TriggerFunc) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	d.triggers = append(slices.Clone(d.triggers), fn)
}

func (d *DB) invoke(fn TriggerFunc, id string) {
	defer d.inflight.Done()

	inv := Invocation{
		EventID:   uuid.NewString(),
		Timestamp: d.now().UTC(),
		Resource:  "messages/" + id,
	}
	log := d.log.With().Str("event_id", inv.EventID).Str("resource", inv.Resource).Logger()
	ctx := log.WithContext(context.Background())

	snap, err := d.snapshot(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("read trigger snapshot")
		return
	}

	if err := fn(ctx, snap, inv); err != nil {
		log.Error().Err(err).Msg("trigger failed")
	}
}

func (d *DB) snapshot(ctx context.Context, id string) (Snapshot, error) {
	snap := Snapshot{Key: id}
	msg, err := d.store.Get(ctx, id)
	switch {
	case errors.Is(err, guestbook.ErrNotFound):
		return snap, nil
	case err != nil:
		return snap, err
	}
	snap.Value = &msg
	return snap, nil
}
