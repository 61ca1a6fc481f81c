// Package storetest holds the behaviour every guestbook.Store must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

// Run exercises a store implementation. newStore must return an empty store;
// Run closes it.
func Run(t *testing.T, newStore func(t *testing.T) guestbook.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s guestbook.Store)
	}{
		{"AppendAndGet", testAppendAndGet},
		{"GetNotFound", testGetNotFound},
		{"DeleteIsFinal", testDeleteIsFinal},
		{"DeleteNotFound", testDeleteNotFound},
		{"TailOrderAndLimit", testTailOrderAndLimit},
		{"TailEmpty", testTailEmpty},
		{"ConcurrentAppend", testConcurrentAppend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close() //nolint:errcheck
			tt.fn(t, s)
		})
	}
}

func testAppendAndGet(t *testing.T, s guestbook.Store) {
	ctx := context.Background()

	msg, err := s.Append(ctx, guestbook.Draft{Name: "Ada", Text: "hello\nthere"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "Ada", msg.Name)
	assert.Equal(t, "hello\nthere", msg.Text)

	got, err := s.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, msg.Name, got.Name)
	assert.Equal(t, msg.Text, got.Text)
	assert.True(t, msg.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", msg.Timestamp, got.Timestamp)
}

func testGetNotFound(t *testing.T, s guestbook.Store) {
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, guestbook.ErrNotFound)
}

func testDeleteIsFinal(t *testing.T, s guestbook.Store) {
	ctx := context.Background()

	keep, err := s.Append(ctx, guestbook.Draft{Name: "a", Text: "keep"})
	require.NoError(t, err)
	drop, err := s.Append(ctx, guestbook.Draft{Name: "b", Text: "drop"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, drop.ID))

	_, err = s.Get(ctx, drop.ID)
	assert.ErrorIs(t, err, guestbook.ErrNotFound)

	err = s.Delete(ctx, drop.ID)
	assert.ErrorIs(t, err, guestbook.ErrNotFound)

	tail, err := s.Tail(ctx, 0)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, keep.ID, tail[0].ID)
}

func testDeleteNotFound(t *testing.T, s guestbook.Store) {
	err := s.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, guestbook.ErrNotFound)
}

func testTailOrderAndLimit(t *testing.T, s guestbook.Store) {
	ctx := context.Background()

	var ids []string
	for i := range 5 {
		msg, err := s.Append(ctx, guestbook.Draft{Name: "n", Text: fmt.Sprintf("msg%d", i)})
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	all, err := s.Tail(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, msg := range all {
		assert.Equal(t, ids[i], msg.ID)
	}

	last, err := s.Tail(ctx, 3)
	require.NoError(t, err)
	require.Len(t, last, 3)
	assert.Equal(t, "msg2", last[0].Text)
	assert.Equal(t, "msg4", last[2].Text)

	more, err := s.Tail(ctx, 12)
	require.NoError(t, err)
	assert.Len(t, more, 5)
}

func testTailEmpty(t *testing.T, s guestbook.Store) {
	tail, err := s.Tail(context.Background(), 12)
	require.NoError(t, err)
	assert.Empty(t, tail)
}

func testConcurrentAppend(t *testing.T, s guestbook.Store) {
	ctx := context.Background()

	const goroutines = 8
	const iterations = 10

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range iterations {
				_, err := s.Append(ctx, guestbook.Draft{Name: "n", Text: fmt.Sprintf("%d-%d", g, i)})
				if err != nil {
					t.Errorf("Append failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	all, err := s.Tail(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, goroutines*iterations)

	seen := map[string]bool{}
	for _, msg := range all {
		assert.False(t, seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
	}
}
