// Package guestbook defines the guestbook message model and the persistence
// and subscription contracts shared by the server and its clients.
package guestbook

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a message does not exist.
var ErrNotFound = errors.New("message not found")

// Message is a single guestbook entry. Messages are never edited: once stored
// they are either kept forever or deleted entirely.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Draft is a message that has not been stored yet. The store assigns the ID
// and timestamp.
type Draft struct {
	Name string `json:"name" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// Stamp turns a draft into a message with a fresh ID and the given creation
// time. IDs are ULIDs, so they sort by creation time.
func (d Draft) Stamp(now time.Time) Message {
	return Message{
		ID:        NewID(),
		Name:      d.Name,
		Text:      d.Text,
		Timestamp: now.UTC(),
	}
}

// NewID returns a new message ID. IDs generated within one process are
// strictly increasing.
func NewID() string {
	return ulid.Make().String()
}
