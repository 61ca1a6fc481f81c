// Package badgerdb provides a BadgerDB-backed guestbook store.
package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

const keyPrefix = "msg:"

// Store implements guestbook.Store on top of BadgerDB.
//
// Keys are "msg:{ulid}". ULIDs sort by creation time, so a reverse prefix
// scan yields the newest messages first.
type Store struct {
	db  *badger.DB
	log zerolog.Logger
	now func() time.Time
}

// Open opens (or creates) a database in dir. An empty dir opens an
// in-memory database.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log: log})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, log: log, now: time.Now}, nil
}

// WithClock sets the clock used to stamp new messages.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func messageKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func (s *Store) Append(ctx context.Context, draft guestbook.Draft) (guestbook.Message, error) {
	msg := draft.Stamp(s.now())

	data, err := json.Marshal(msg)
	if err != nil {
		return guestbook.Message{}, fmt.Errorf("marshal message: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg.ID), data)
	})
	if err != nil {
		return guestbook.Message{}, fmt.Errorf("store message: %w", err)
	}
	return msg, nil
}

func (s *Store) Get(ctx context.Context, id string) (guestbook.Message, error) {
	var msg guestbook.Message
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &msg)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return guestbook.Message{}, guestbook.ErrNotFound
	}
	if err != nil {
		return guestbook.Message{}, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(messageKey(id)); err != nil {
			return err
		}
		return txn.Delete(messageKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return guestbook.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// Tail walks the keyspace backwards from the newest key and stops after
// limit messages.
func (s *Store) Tail(ctx context.Context, limit int) ([]guestbook.Message, error) {
	var messages []guestbook.Message

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// 0xFF sorts after every ULID character.
		seek := append([]byte(keyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var msg guestbook.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tail messages: %w", err)
	}

	slices.Reverse(messages)
	return messages, nil
}

func (s *Store) Close() error {
	s.log.Debug().Msg("closing badger")
	return s.db.Close()
}

// badgerLogger routes badger's internal logging through zerolog. Badger is
// chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.log.Error().Msgf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.log.Warn().Msgf(format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.log.Debug().Msgf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.log.Trace().Msgf(format, args...) }
