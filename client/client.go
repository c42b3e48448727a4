package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pm-lab/domain"
	"pm-lab/domain/event"
	"pm-lab/projection"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"PM_SERVER_ADDR,default=localhost:8080"`
	Username      string `env:"PM_USERNAME"`
	SessionID     string `env:"PM_SESSION_ID"`
	LogLevel      string `env:"LOG_LEVEL,required=true"`
}

// Wire frames, mirroring the server's JSON contract.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sessionPayload struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID"`
}

type wireMessage struct {
	Content string `json:"content"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type wirePeer struct {
	UserID    string        `json:"userID"`
	Username  string        `json:"username"`
	Connected bool          `json:"connected"`
	Messages  []wireMessage `json:"messages"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v", err)
	}
	os.Exit(code)
}

// run handles the websocket client lifecycle: configuration loading,
// handshake, and the event loop feeding the local directory projection.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Dial the presence gateway. A sessionID resumes a previous
	// identity; a username mints a new one.
	query := url.Values{}
	if config.SessionID != "" {
		query.Set("sessionID", config.SessionID)
	} else {
		query.Set("username", config.Username)
	}
	wsURL := fmt.Sprintf("ws://%s/ws?%s", config.ServerAddress, query.Encode())

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = ws.Close()
	}()

	// Closing the socket is what unblocks the read loop below.
	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	// 4. Handshake: session frame first, then the peer snapshot.
	var f frame
	if err := ws.ReadJSON(&f); err != nil {
		return exitRuntime, fmt.Errorf("handshake failed: %w", err)
	}
	var session sessionPayload
	if err := json.Unmarshal(f.Data, &session); err != nil {
		return exitRuntime, fmt.Errorf("bad session frame: %w", err)
	}
	log.Info(">>> Connected! Keep PM_SESSION_ID to resume this identity (Ctrl+C to quit)",
		"session_id", session.SessionID, "user_id", session.UserID)

	dir := projection.NewDirectory(session.UserID)

	if err := ws.ReadJSON(&f); err != nil {
		return exitRuntime, fmt.Errorf("snapshot failed: %w", err)
	}
	var peers []wirePeer
	if err := json.Unmarshal(f.Data, &peers); err != nil {
		return exitRuntime, fmt.Errorf("bad snapshot frame: %w", err)
	}
	dir.Seed(toDomainPeers(peers))
	for _, p := range dir.Peers() {
		log.Info(fmt.Sprintf("    %s (online=%t, %d messages)", p.Username, p.Connected, len(p.Messages)))
	}

	// 5. Event loop. Runs until the context is canceled or the server
	// closes the connection.
	for {
		if err := ws.ReadJSON(&f); err != nil {
			// Normal exit if the user triggered a shutdown.
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		handle(log, dir, f)
	}
}

func handle(log *slog.Logger, dir *projection.Directory, f frame) {
	switch f.Event {
	case "user_connected":
		var peer wirePeer
		if err := json.Unmarshal(f.Data, &peer); err != nil {
			log.Warn("Bad frame", "event", f.Event, "error", err)
			return
		}
		dir.Consume(event.PeerConnected{UserID: peer.UserID, Username: peer.Username})
		log.Info(fmt.Sprintf(">>> %s is online", peer.Username))
	case "user_disconnected":
		var userID string
		if err := json.Unmarshal(f.Data, &userID); err != nil {
			log.Warn("Bad frame", "event", f.Event, "error", err)
			return
		}
		name := userID
		if peer, ok := dir.Peer(userID); ok {
			name = peer.Username
		}
		dir.Consume(event.PeerDisconnected{UserID: userID})
		log.Info(fmt.Sprintf("<<< %s went offline", name))
	case "private_message":
		var msg wireMessage
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			log.Warn("Bad frame", "event", f.Event, "error", err)
			return
		}
		dir.Consume(event.MessageDelivered{
			Content: msg.Content, From: msg.From, To: msg.To,
			At: time.Now().UnixNano(),
		})
		name := msg.From
		if peer, ok := dir.Peer(msg.From); ok && peer.Username != "" {
			name = peer.Username
		}
		log.Info(fmt.Sprintf("[%s] %s: %s", time.Now().Format(time.TimeOnly), name, msg.Content))
	case "error":
		log.Warn("Server reported an error", "detail", string(f.Data))
	}
}

func toDomainPeers(peers []wirePeer) []domain.Peer {
	out := make([]domain.Peer, 0, len(peers))
	for _, p := range peers {
		peer := domain.Peer{UserID: p.UserID, Username: p.Username, Connected: p.Connected}
		for _, m := range p.Messages {
			peer.Messages = append(peer.Messages, domain.DirectMessage{
				Content: m.Content, From: m.From, To: m.To,
			})
		}
		out = append(out, peer)
	}
	return out
}
