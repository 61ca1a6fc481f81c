// Package jsonfile provides a JSON file-based guestbook store.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

// MessagesFile is the root JSON structure stored on disk. Messages are kept
// in insertion order.
type MessagesFile struct {
	Messages  []guestbook.Message `json:"messages"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store implements guestbook.Store using a single JSON file. An advisory file
// lock makes the file safe to share between processes.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.RWMutex
}

// New creates a new JSON file store at the given path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// WithClock sets the clock used to stamp new messages.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Append stamps the draft and appends it to the file.
func (s *Store) Append(ctx context.Context, draft guestbook.Draft) (guestbook.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var msg guestbook.Message
	err := s.withExclusiveLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		// Stamped under the file lock so file order matches ID order
		// across processes.
		msg = draft.Stamp(s.now())

		file.Messages = append(file.Messages, msg)
		file.UpdatedAt = msg.Timestamp
		return s.save(file)
	})
	if err != nil {
		return guestbook.Message{}, err
	}

	return msg, nil
}

// Get returns a message by ID. Returns ErrNotFound if not found.
func (s *Store) Get(ctx context.Context, id string) (guestbook.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found guestbook.Message
		ok    bool
	)
	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		for _, msg := range file.Messages {
			if msg.ID == id {
				found, ok = msg, true
				break
			}
		}
		return nil
	})
	if err != nil {
		return guestbook.Message{}, err
	}
	if !ok {
		return guestbook.Message{}, guestbook.ErrNotFound
	}
	return found, nil
}

// Delete removes a message by ID. Returns ErrNotFound if not found.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		for i, msg := range file.Messages {
			if msg.ID == id {
				file.Messages = append(file.Messages[:i], file.Messages[i+1:]...)
				file.UpdatedAt = s.now().UTC()
				return s.save(file)
			}
		}
		return guestbook.ErrNotFound
	})
}

// Tail returns the newest limit messages, oldest first.
func (s *Store) Tail(ctx context.Context, limit int) ([]guestbook.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []guestbook.Message
	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		messages = file.Messages
		return nil
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// Close is a no-op; the file is only open while an operation runs.
func (s *Store) Close() error {
	return nil
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// withSharedLock executes fn while holding a shared (read) file lock.
func (s *Store) withSharedLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_SH, fn)
}

// withExclusiveLock executes fn while holding an exclusive (write) file lock.
func (s *Store) withExclusiveLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_EX, fn)
}

// withFileLock acquires a file lock, executes fn, then releases the lock.
func (s *Store) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// load reads the messages file from disk.
// Returns empty MessagesFile if file doesn't exist.
func (s *Store) load() (MessagesFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return MessagesFile{}, nil
		}
		return MessagesFile{}, fmt.Errorf("read messages file: %w", err)
	}

	if len(data) == 0 {
		return MessagesFile{}, nil
	}

	var file MessagesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return MessagesFile{}, fmt.Errorf("parse messages file: %w", err)
	}

	return file, nil
}

// save writes the messages file to disk atomically.
// Uses write-to-temp-then-rename to prevent corruption from interrupted writes.
func (s *Store) save(file MessagesFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
