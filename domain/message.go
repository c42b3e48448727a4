// Package domain contains core concepts of the messaging system.
// This file defines DirectMessage events and related rules.
// Messages are immutable and validated before they reach the stores.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxContentLength bounds the content of a direct message. Content must be
// between 1 and MaxContentLength characters; the transport layer enforces
// this before the message reaches the coordinator or the stores.
const MaxContentLength = 255

// DirectMessage represents an immutable directed message between two
// identities. From and To are user IDs that were valid at creation time.
type DirectMessage struct {
	ID      uuid.UUID // unique identifier
	Content string
	From    string
	To      string
	At      time.Time
}

// Counterpart returns the other participant of the message as seen by
// userID. A self-addressed message has the sender as its own counterpart.
func (m DirectMessage) Counterpart(userID string) string {
	if m.From == userID {
		return m.To
	}
	return m.From
}
