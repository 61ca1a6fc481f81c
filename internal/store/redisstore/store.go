// Package redisstore provides a Redis-backed guestbook store.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

// DefaultPrefix namespaces the keys used by the store.
const DefaultPrefix = "guestbook"

// Store implements guestbook.Store with two keys:
//
//	{prefix}:messages  hash of message ID -> JSON message
//	{prefix}:index     sorted set of message IDs
//
// Every index member has score 0, so Redis orders the set by member, and
// ULID members order by creation time.
type Store struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// New wraps an existing client. An empty prefix uses DefaultPrefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string, db int, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

// WithClock sets the clock used to stamp new messages.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) messagesKey() string { return s.prefix + ":messages" }
func (s *Store) indexKey() string    { return s.prefix + ":index" }

func (s *Store) Append(ctx context.Context, draft guestbook.Draft) (guestbook.Message, error) {
	msg := draft.Stamp(s.now())

	data, err := json.Marshal(msg)
	if err != nil {
		return guestbook.Message{}, fmt.Errorf("marshal message: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.messagesKey(), msg.ID, data)
		pipe.ZAdd(ctx, s.indexKey(), &redis.Z{Score: 0, Member: msg.ID})
		return nil
	})
	if err != nil {
		return guestbook.Message{}, fmt.Errorf("store message: %w", err)
	}
	return msg, nil
}

func (s *Store) Get(ctx context.Context, id string) (guestbook.Message, error) {
	data, err := s.client.HGet(ctx, s.messagesKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return guestbook.Message{}, guestbook.ErrNotFound
	}
	if err != nil {
		return guestbook.Message{}, fmt.Errorf("get message: %w", err)
	}

	var msg guestbook.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return guestbook.Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, s.messagesKey(), id)
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if removed.Val() == 0 {
		return guestbook.ErrNotFound
	}
	return nil
}

func (s *Store) Tail(ctx context.Context, limit int) ([]guestbook.Message, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.messagesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}

	messages := make([]guestbook.Message, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Deleted between the two reads.
			continue
		}
		var msg guestbook.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", ids[i], err)
		}
		messages = append(messages, msg)
	}

	slices.Reverse(messages)
	return messages, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
