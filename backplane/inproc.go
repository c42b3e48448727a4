package backplane

import (
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 64

// InProc is the single-instance backplane: channel-per-subscriber pub/sub
// inside one process. Each subscriber owns a buffered queue drained by a
// dedicated goroutine, so publish order is preserved per subscription and
// a slow handler never blocks publishers of other subscriptions.
type InProc struct {
	mu     sync.Mutex
	subs   map[string]map[int]*inprocSub
	nextID int
	closed bool
}

type inprocSub struct {
	queue chan Envelope
	done  chan struct{}
}

func NewInProc() *InProc {
	return &InProc{subs: make(map[string]map[int]*inprocSub)}
}

func (b *InProc) Publish(topic string, env Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[topic] {
		select {
		case sub.queue <- env:
		case <-sub.done:
		}
	}
	return nil
}

func (b *InProc) Subscribe(topic string, handler Handler) (func(), error) {
	sub := &inprocSub{
		queue: make(chan Envelope, subscriberBuffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]*inprocSub)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = sub
	b.mu.Unlock()

	go func() {
		for {
			select {
			case env := <-sub.queue:
				handler(env)
			case <-sub.done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			b.mu.Unlock()
			close(sub.done)
		})
	}
	return cancel, nil
}

// Single instance: no remote siblings to account for.
func (b *InProc) ConnJoined(string, uuid.UUID) {}
func (b *InProc) ConnLeft(string, uuid.UUID)   {}
func (b *InProc) RemoteConnections(string) int { return 0 }

func (b *InProc) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, topicSubs := range b.subs {
		for _, sub := range topicSubs {
			close(sub.done)
		}
	}
	b.subs = make(map[string]map[int]*inprocSub)
	return nil
}
