package event

import (
	"pm-lab/domain"

	"github.com/google/uuid"
)

// DomainEvent is anything carried over the delivery backplane and drained
// into per-connection sinks. Kind distinguishes payload types on the wire.
type DomainEvent interface {
	Kind() string
}

const (
	KindPeerConnected    = "user_connected"
	KindPeerDisconnected = "user_disconnected"
	KindDirectMessage    = "private_message"
)

// PeerConnected announces that an identity gained its first live connection.
type PeerConnected struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
}

func (PeerConnected) Kind() string { return KindPeerConnected }

// PeerDisconnected announces that an identity lost its last live connection.
type PeerDisconnected struct {
	UserID string `json:"userID"`
}

func (PeerDisconnected) Kind() string { return KindPeerDisconnected }

// MessageDelivered carries a direct message to the recipient's and the
// sender's live connections.
type MessageDelivered struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	At      int64     `json:"at"`
}

func (MessageDelivered) Kind() string { return KindDirectMessage }

func FromMessage(m domain.DirectMessage) MessageDelivered {
	return MessageDelivered{
		ID:      m.ID,
		Content: m.Content,
		From:    m.From,
		To:      m.To,
		At:      m.At.UnixNano(),
	}
}
