package backplane

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	connSubject = "pm.conn"

	// Mirror entries are only trusted while their instance keeps
	// heartbeating. A crashed instance stops, its connections expire,
	// and the last-connection check is unblocked again.
	heartbeatInterval = 15 * time.Second
	instanceTTL       = 45 * time.Second
)

// connDelta advertises a connection join/leave, or instance liveness,
// to the other instances.
type connDelta struct {
	Instance string `json:"instance"`
	UserID   string `json:"userID,omitempty"`
	ConnID   string `json:"connID,omitempty"`
	Action   string `json:"action"` // "join", "leave" or "heartbeat"
}

// Nats is the multi-instance backplane. Presence and message envelopes
// travel over plain subjects; connection join/leave deltas are mirrored by
// every instance so that the last-connection check can see connections held
// by remote siblings.
type Nats struct {
	nc       *nats.Conn
	instance string
	log      *slog.Logger
	ttl      time.Duration

	mu        sync.RWMutex
	remote    map[string]map[string]string // userID -> instance/connID -> instance
	instances map[string]time.Time         // instance -> last delta or heartbeat
	connSub   *nats.Subscription
	done      chan struct{}
	closeOnce sync.Once
}

func NewNats(url string, log *slog.Logger) (*Nats, error) {
	nc, err := nats.Connect(url,
		nats.Name("pm-lab"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	b := &Nats{
		nc:        nc,
		instance:  uuid.NewString(),
		log:       log,
		ttl:       instanceTTL,
		remote:    make(map[string]map[string]string),
		instances: make(map[string]time.Time),
		done:      make(chan struct{}),
	}
	// No queue group: every instance needs the full membership picture.
	b.connSub, err = nc.Subscribe(connSubject, b.onConnDelta)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", connSubject, err)
	}
	go b.heartbeatLoop()
	go b.sweepLoop()
	log.Info("Connected to NATS", "url", nc.ConnectedUrl(), "instance", b.instance)
	return b, nil
}

func (b *Nats) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.publishDelta(connDelta{Instance: b.instance, Action: "heartbeat"})
		}
	}
}

func (b *Nats) sweepLoop() {
	ticker := time.NewTicker(b.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sweepDeadInstances()
		}
	}
}

// sweepDeadInstances drops every mirror entry belonging to an instance
// that has not been heard from within the liveness window.
func (b *Nats) sweepDeadInstances() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for instance, seen := range b.instances {
		if now.Sub(seen) <= b.ttl {
			continue
		}
		delete(b.instances, instance)
		for userID, conns := range b.remote {
			for key, owner := range conns {
				if owner == instance {
					delete(conns, key)
				}
			}
			if len(conns) == 0 {
				delete(b.remote, userID)
			}
		}
		b.log.Warn("Dropping connections of silent instance", "instance", instance)
	}
}

func (b *Nats) Publish(topic string, env Envelope) error {
	data, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	return b.nc.Publish(topic, data)
}

func (b *Nats) Subscribe(topic string, handler Handler) (func(), error) {
	sub, err := b.nc.Subscribe(topic, func(msg *nats.Msg) {
		env, err := decodeEnvelope(msg.Data)
		if err != nil {
			b.log.Warn("Dropping undecodable envelope", "subject", msg.Subject, "error", err)
			return
		}
		handler(env)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *Nats) ConnJoined(userID string, connID uuid.UUID) {
	b.publishDelta(connDelta{Instance: b.instance, UserID: userID, ConnID: connID.String(), Action: "join"})
}

func (b *Nats) ConnLeft(userID string, connID uuid.UUID) {
	b.publishDelta(connDelta{Instance: b.instance, UserID: userID, ConnID: connID.String(), Action: "leave"})
}

func (b *Nats) publishDelta(delta connDelta) {
	data, err := json.Marshal(delta)
	if err != nil {
		return
	}
	if err := b.nc.Publish(connSubject, data); err != nil {
		b.log.Warn("Failed to publish connection delta", "user", delta.UserID, "error", err)
	}
}

// onConnDelta mirrors remote membership. Own deltas are skipped: local
// connections are already accounted for by the registry.
func (b *Nats) onConnDelta(msg *nats.Msg) {
	var delta connDelta
	if err := json.Unmarshal(msg.Data, &delta); err != nil {
		b.log.Warn("Invalid connection delta", "error", err)
		return
	}
	if delta.Instance == b.instance {
		return
	}
	key := delta.Instance + "/" + delta.ConnID

	b.mu.Lock()
	defer b.mu.Unlock()
	// Any delta proves its instance is alive.
	b.instances[delta.Instance] = time.Now()

	switch delta.Action {
	case "join":
		if b.remote[delta.UserID] == nil {
			b.remote[delta.UserID] = make(map[string]string)
		}
		b.remote[delta.UserID][key] = delta.Instance
	case "leave":
		if conns, ok := b.remote[delta.UserID]; ok {
			delete(conns, key)
			if len(conns) == 0 {
				delete(b.remote, delta.UserID)
			}
		}
	}
}

// RemoteConnections counts mirrored connections whose owning instance is
// still within the liveness window. Expired instances are ignored here
// even before the sweep removes their entries.
func (b *Nats) RemoteConnections(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	now := time.Now()
	count := 0
	for _, instance := range b.remote[userID] {
		if now.Sub(b.instances[instance]) <= b.ttl {
			count++
		}
	}
	return count
}

func (b *Nats) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	if b.connSub != nil {
		_ = b.connSub.Unsubscribe()
	}
	return b.nc.Drain()
}
