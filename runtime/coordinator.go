// Package runtime owns the per-connection lifecycle: registration, snapshot
// building, fan-out and disconnect accounting. It orchestrates the stores
// and the backplane without containing transport or storage logic.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pm-lab/auth"
	"pm-lab/backplane"
	"pm-lab/contract"
	"pm-lab/domain"
	"pm-lab/domain/event"
	"pm-lab/repositories"

	"github.com/google/uuid"
)

// Connection lifecycle. A connection that fails the gate never reaches
// StateActive; it goes straight to StateClosed.
const (
	StateConnecting int32 = iota
	StateActive
	StateClosed
)

// Conn is one live connection: a transport channel bound to exactly one
// principal for its whole lifetime, member of exactly one delivery group.
type Conn struct {
	ID        uuid.UUID
	Principal auth.Principal

	sink    contract.EventSink
	state   atomic.Int32
	cancels []func()
}

func (c *Conn) Active() bool {
	return c.state.Load() == StateActive
}

// Coordinator drives connections through CONNECTING -> ACTIVE -> CLOSED and
// keeps the session store, the delivery groups and the backplane in step.
type Coordinator struct {
	log       *slog.Logger
	sessions  repositories.ISessionRepository
	messages  repositories.IMessageRepository
	registry  contract.IRegistry
	backplane backplane.IBackplane
}

func NewCoordinator(log *slog.Logger, sessions repositories.ISessionRepository,
	messages repositories.IMessageRepository, registry contract.IRegistry,
	bp backplane.IBackplane) *Coordinator {
	return &Coordinator{
		log:       log,
		sessions:  sessions,
		messages:  messages,
		registry:  registry,
		backplane: bp,
	}
}

// Connect moves a gated principal to ACTIVE:
//  1. Persist the session with connected = true.
//  2. Register the connection into the per-userID delivery group. This must
//     precede the asynchronous snapshot build so sibling disconnect checks
//     already see this connection.
//  3. Subscribe the connection's sink to its targeted topic and to the
//     broadcast topic, skipping envelopes it originated itself.
//
// A failing session save is logged, not fatal: stranding the client with no
// channel at all would be worse than a stale connectivity flag.
func (c *Coordinator) Connect(principal auth.Principal, s contract.EventSink) (*Conn, error) {
	conn := &Conn{ID: uuid.New(), Principal: principal, sink: s}
	conn.state.Store(StateConnecting)

	if err := c.sessions.SaveSession(principal.SessionID, principal.Session(true)); err != nil {
		c.log.Warn("Failed to persist session at connect",
			"user_id", principal.UserID, "error", err)
	}

	c.registry.Add(principal.UserID, conn.ID)
	c.backplane.ConnJoined(principal.UserID, conn.ID)

	deliver := func(env backplane.Envelope) {
		if env.Origin == conn.ID {
			return
		}
		_ = conn.sink.Consume(context.Background(), env.Event)
	}
	for _, topic := range []string{backplane.TopicUser(principal.UserID), backplane.TopicBroadcast} {
		cancel, err := c.backplane.Subscribe(topic, deliver)
		if err != nil {
			conn.state.Store(StateClosed)
			c.teardown(conn)
			remaining := c.registry.RemoveAndCount(principal.UserID, conn.ID)
			c.backplane.ConnLeft(principal.UserID, conn.ID)
			// The session was flagged connected above; revert it unless a
			// sibling connection still holds the identity live.
			if remaining == 0 && c.backplane.RemoteConnections(principal.UserID) == 0 {
				if sErr := c.sessions.SaveSession(principal.SessionID, principal.Session(false)); sErr != nil {
					c.log.Warn("Failed to revert session after failed connect",
						"user_id", principal.UserID, "error", sErr)
				}
			}
			return nil, err
		}
		conn.cancels = append(conn.cancels, cancel)
	}

	conn.state.Store(StateActive)
	c.log.Info("Connection active",
		"user_id", principal.UserID, "username", principal.Username, "conn_id", conn.ID)
	return conn, nil
}

// Announce broadcasts the "connected" presence event to every other live
// connection, process-wide and cluster-wide. Called by the transport after
// the snapshot has been emitted.
func (c *Coordinator) Announce(conn *Conn) {
	err := c.backplane.Publish(backplane.TopicBroadcast, backplane.Envelope{
		Origin: conn.ID,
		Event: event.PeerConnected{
			UserID:   conn.Principal.UserID,
			Username: conn.Principal.Username,
		},
	})
	if err != nil {
		c.log.Warn("Failed to broadcast connect event", "user_id", conn.Principal.UserID, "error", err)
	}
}

// Snapshot builds the full picture for a new connection: every known
// session with its connectivity flag and the message history bucketed by
// counterpart. The two store reads run concurrently.
//
// On a store failure the snapshot is degraded, not fatal: the error is
// returned alongside whatever could be assembled, and the connection stays
// usable for live delivery.
func (c *Coordinator) Snapshot(conn *Conn) ([]domain.Peer, error) {
	userID := conn.Principal.UserID

	var (
		wg       sync.WaitGroup
		messages []domain.DirectMessage
		sessions []domain.Session
		msgErr   error
		sErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		messages, msgErr = c.messages.MessagesForUser(userID)
	}()
	go func() {
		defer wg.Done()
		sessions, sErr = c.sessions.FindAllSessions()
	}()
	wg.Wait()

	if msgErr != nil {
		c.log.Warn("Snapshot history degraded", "user_id", userID, "error", msgErr)
	}
	if sErr != nil {
		c.log.Warn("Snapshot sessions degraded", "user_id", userID, "error", sErr)
	}

	perCounterpart := make(map[string][]domain.DirectMessage)
	for _, m := range messages {
		other := m.Counterpart(userID)
		perCounterpart[other] = append(perCounterpart[other], m)
	}

	peers := make([]domain.Peer, 0, len(sessions))
	for _, session := range sessions {
		peers = append(peers, domain.Peer{
			UserID:    session.UserID,
			Username:  session.Username,
			Connected: session.Connected,
			Messages:  perCounterpart[session.UserID],
		})
	}

	if msgErr != nil {
		return peers, msgErr
	}
	return peers, sErr
}

// Send fans a direct message out to every live connection of the recipient
// and of the sender (minus the sending connection itself), then persists it.
// Delivery is not blocked on persistence, but persistence is attempted even
// when nobody is currently connected; running it after the publish on the
// caller's goroutine keeps per-sender order intact on both paths.
func (c *Coordinator) Send(conn *Conn, content, to string) error {
	message := domain.DirectMessage{
		ID:      uuid.New(),
		Content: content,
		From:    conn.Principal.UserID,
		To:      to,
		At:      time.Now().UTC(),
	}

	env := backplane.Envelope{Origin: conn.ID, Event: event.FromMessage(message)}
	if err := c.backplane.Publish(backplane.TopicUser(to), env); err != nil {
		c.log.Warn("Failed to deliver to recipient group", "to", to, "error", err)
	}
	if to != message.From {
		if err := c.backplane.Publish(backplane.TopicUser(message.From), env); err != nil {
			c.log.Warn("Failed to deliver to sender group", "from", message.From, "error", err)
		}
	}

	return c.messages.StoreMessage(message)
}

// Disconnect closes a connection and runs the last-connection check:
// only when no live connection for the identity remains anywhere does it
// broadcast "disconnected" and flip the session flag. RemoveAndCount is
// atomic, so concurrent sibling disconnects settle on exactly one broadcast.
func (c *Coordinator) Disconnect(conn *Conn) {
	if !conn.state.CompareAndSwap(StateActive, StateClosed) {
		return
	}
	c.teardown(conn)

	userID := conn.Principal.UserID
	remaining := c.registry.RemoveAndCount(userID, conn.ID)
	c.backplane.ConnLeft(userID, conn.ID)

	if remaining > 0 || c.backplane.RemoteConnections(userID) > 0 {
		c.log.Debug("Identity still connected elsewhere", "user_id", userID, "local_remaining", remaining)
		return
	}

	err := c.backplane.Publish(backplane.TopicBroadcast, backplane.Envelope{
		Origin: conn.ID,
		Event:  event.PeerDisconnected{UserID: userID},
	})
	if err != nil {
		c.log.Warn("Failed to broadcast disconnect event", "user_id", userID, "error", err)
	}

	if err := c.sessions.SaveSession(conn.Principal.SessionID, conn.Principal.Session(false)); err != nil {
		c.log.Warn("Failed to persist session at disconnect", "user_id", userID, "error", err)
	}
	c.log.Info("Identity disconnected", "user_id", userID)
}

func (c *Coordinator) teardown(conn *Conn) {
	for _, cancel := range conn.cancels {
		cancel()
	}
	conn.cancels = nil
}
