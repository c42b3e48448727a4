// Package ws is the transport boundary: it upgrades HTTP connections to
// websockets, runs the gate, and pumps frames between the client and the
// presence core. Wire encoding lives here and nowhere else.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"pm-lab/auth"
	apperrors "pm-lab/errors"
	"pm-lab/runtime"
	"pm-lab/services"
	"pm-lab/sink"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var validate = validator.New()

type Server struct {
	log        *slog.Logger
	service    services.IPresenceService
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, service services.IPresenceService, bufferSize int) *Server {
	return &Server{
		log:        log,
		service:    service,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			// Cross-origin policy is the deployment's concern, not ours.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleConnection)
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}

// client serializes writes: the snapshot, the writer loop and validation
// error frames all share one websocket.
type client struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *client) writeFrame(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(f)
}

// handleConnection is the whole per-connection lifecycle. The gate runs
// before the upgrade so a rejected client gets a clean HTTP status instead
// of an immediately-closed socket.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	principal, err := s.service.Authenticate(auth.Credentials{
		SessionID: query.Get("sessionID"),
		Username:  query.Get("username"),
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidUsername) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "error", err)
		return
	}
	c := &client{ws: wsConn}
	defer wsConn.Close()

	eventSink := sink.NewSink(s.bufferSize)
	conn, err := s.service.Connect(principal, eventSink)
	if err != nil {
		s.log.Error("Failed to activate connection", "user_id", principal.UserID, "error", err)
		return
	}
	defer s.service.Disconnect(conn)

	// Session details first, then the snapshot; only afterwards does the
	// writer loop start draining live events queued meanwhile, so history
	// always reaches the client before anything newer.
	if err := s.emitSession(c, principal); err != nil {
		return
	}
	if err := s.emitSnapshot(c, conn); err != nil {
		return
	}
	s.service.Announce(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.writerLoop(ctx, c, eventSink, principal.UserID)

	s.readerLoop(c, conn)
}

func (s *Server) emitSession(c *client, principal auth.Principal) error {
	f, err := newFrame(eventSession, sessionPayload{
		SessionID: principal.SessionID,
		UserID:    principal.UserID,
	})
	if err != nil {
		return err
	}
	return c.writeFrame(f)
}

func (s *Server) emitSnapshot(c *client, conn *runtime.Conn) error {
	peers, err := s.service.Snapshot(conn)
	if err != nil {
		// Degraded snapshot: the connection stays usable for live traffic.
		s.log.Warn("Snapshot degraded", "user_id", conn.Principal.UserID, "error", err)
	}
	f, err := newFrame(eventUsers, toWirePeers(peers))
	if err != nil {
		return err
	}
	return c.writeFrame(f)
}

func (s *Server) writerLoop(ctx context.Context, c *client, eventSink *sink.Sink, userID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-eventSink.Events:
			f, err := toOutboundFrame(evt)
			if err != nil {
				s.log.Warn("Failed to encode outbound event", "user_id", userID, "error", err)
				continue
			}
			if err := c.writeFrame(f); err != nil {
				s.log.Debug("Write failed, client likely gone", "user_id", userID, "error", err)
				return
			}
		}
	}
}

func (s *Server) readerLoop(c *client, conn *runtime.Conn) {
	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			s.log.Debug("Client disconnected", "user_id", conn.Principal.UserID, "error", err)
			return
		}
		if f.Event != eventPrivateMessage {
			s.reportError(c, fmt.Sprintf("unsupported event %q", f.Event))
			continue
		}

		var in inboundMessage
		if err := json.Unmarshal(f.Data, &in); err != nil {
			s.reportError(c, "malformed private message payload")
			continue
		}
		if err := validate.Struct(in); err != nil {
			// Rejected before any persistence or delivery is attempted.
			s.reportError(c, apperrors.ErrContentLength.Error())
			continue
		}

		if err := s.service.Send(conn, in.Content, in.To); err != nil {
			s.log.Warn("Message persistence failed",
				"from", conn.Principal.UserID, "to", in.To, "error", err)
		}
	}
}

func (s *Server) reportError(c *client, message string) {
	f, err := newFrame(eventError, message)
	if err != nil {
		return
	}
	_ = c.writeFrame(f)
}
