package sink

import (
	"context"

	"pm-lab/domain/event"
)

// Sink is one connection's inbound event queue. The backplane subscription
// fills it; the transport's writer loop drains it.
type Sink struct {
	Events chan event.DomainEvent
}

func NewSink(bufferSize int) *Sink {
	return &Sink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the backplane subscription handler.
// Redirect the event through the concerned owner of the channel;
// the transport writer loop will take it from now. A full queue sheds the
// event instead of blocking the fan-out path.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
