//go:generate go run go.uber.org/mock/mockgen -source=backplane.go -destination=../mocks/mock_backplane.go -package=mocks
// Package backplane is the cross-instance fan-out mechanism for presence
// and message delivery. Any implementation must be at-least-once and must
// preserve per-publisher ordering.
package backplane

import (
	"pm-lab/domain/event"

	"github.com/google/uuid"
)

// TopicBroadcast reaches every live connection on every instance.
const TopicBroadcast = "pm.broadcast"

// TopicUser reaches the delivery group of one identity: every live
// connection bound to that userID, on any instance.
func TopicUser(userID string) string {
	return "pm.user." + userID
}

// Envelope wraps a domain event with the connection that produced it.
// A connection never redelivers an envelope it originated; this mirrors
// broadcast-to-others semantics without a second topic layer.
type Envelope struct {
	Origin uuid.UUID
	Event  event.DomainEvent
}

type Handler func(env Envelope)

type IBackplane interface {
	Publish(topic string, env Envelope) error
	// Subscribe registers a handler and returns a cancel func. Handlers for
	// one subscription are invoked sequentially, in publish order.
	Subscribe(topic string, handler Handler) (func(), error)

	// Group accounting across instances. ConnJoined/ConnLeft advertise a
	// local connection to the other instances; RemoteConnections reports
	// how many connections for userID live elsewhere. Together with the
	// local registry this makes the last-connection check instance-spanning.
	ConnJoined(userID string, connID uuid.UUID)
	ConnLeft(userID string, connID uuid.UUID)
	RemoteConnections(userID string) int

	Close() error
}
