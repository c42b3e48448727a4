package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pm-lab/auth"
	"pm-lab/backplane"
	"pm-lab/repositories"
	"pm-lab/runtime"
	"pm-lab/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := repositories.NewMemorySessionRepository(time.Hour)
	t.Cleanup(sessions.Stop)
	bp := backplane.NewInProc()
	t.Cleanup(func() { _ = bp.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	coordinator := runtime.NewCoordinator(log, sessions,
		repositories.NewMessageRepository(db), runtime.NewRegistry(), bp)
	service := services.NewPresenceService(auth.NewGate(sessions), coordinator)

	server := httptest.NewServer(NewServer(log, service, 16).Router())
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

// readUntil skips frames until the wanted event shows up; presence
// broadcasts from other test participants may interleave.
func readUntil(t *testing.T, ws *websocket.Conn, eventName string) frame {
	t.Helper()
	for i := 0; i < 10; i++ {
		f := readFrame(t, ws)
		if f.Event == eventName {
			return f
		}
	}
	t.Fatalf("never received %q frame", eventName)
	return frame{}
}

func handshake(t *testing.T, ws *websocket.Conn) sessionPayload {
	t.Helper()
	f := readFrame(t, ws)
	require.Equal(t, eventSession, f.Event)
	var session sessionPayload
	require.NoError(t, json.Unmarshal(f.Data, &session))

	f = readFrame(t, ws)
	require.Equal(t, eventUsers, f.Event)
	return session
}

func send(t *testing.T, ws *websocket.Conn, content, to string) {
	t.Helper()
	data, err := json.Marshal(inboundMessage{Content: content, To: to})
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(frame{Event: eventPrivateMessage, Data: data}))
}

func Test_Rejects_Anonymous_Connection_Before_Upgrade(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func Test_Handshake_Emits_Session_Then_Snapshot(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	ws := dial(t, server, "username=Alice")

	f := readFrame(t, ws)
	req.Equal(eventSession, f.Event)
	var session sessionPayload
	req.NoError(json.Unmarshal(f.Data, &session))
	req.Len(session.SessionID, 32)
	req.Len(session.UserID, 32)

	f = readFrame(t, ws)
	req.Equal(eventUsers, f.Event)
	var peers []wirePeer
	req.NoError(json.Unmarshal(f.Data, &peers))
	req.Len(peers, 1) // the connecting user itself
	req.Equal(session.UserID, peers[0].UserID)
	req.True(peers[0].Connected)
}

func Test_Session_Resumption_Over_Websocket(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	ws := dial(t, server, "username=Alice")
	original := handshake(t, ws)
	req.NoError(ws.Close())

	resumed := dial(t, server, "sessionID="+original.SessionID)
	second := handshake(t, resumed)

	req.Equal(original.UserID, second.UserID)
	req.Equal(original.SessionID, second.SessionID)
}

func Test_Presence_And_Message_Round_Trip(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	alice := dial(t, server, "username=Alice")
	aliceSession := handshake(t, alice)

	bob := dial(t, server, "username=Bob")
	bobSession := handshake(t, bob)

	// Alice is told about Bob coming online.
	f := readUntil(t, alice, eventUserConnected)
	var peer wirePeer
	req.NoError(json.Unmarshal(f.Data, &peer))
	req.Equal(bobSession.UserID, peer.UserID)
	req.Equal("Bob", peer.Username)
	req.Empty(peer.Messages)

	send(t, alice, "hi bob", bobSession.UserID)

	f = readUntil(t, bob, eventPrivateMessage)
	var msg wireMessage
	req.NoError(json.Unmarshal(f.Data, &msg))
	req.Equal("hi bob", msg.Content)
	req.Equal(aliceSession.UserID, msg.From)
	req.Equal(bobSession.UserID, msg.To)
}

func Test_Disconnect_Broadcast_On_Last_Connection(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	alice := dial(t, server, "username=Alice")
	handshake(t, alice)

	bobFirst := dial(t, server, "username=Bob")
	bobSession := handshake(t, bobFirst)
	bobSecond := dial(t, server, "sessionID="+bobSession.SessionID)
	handshake(t, bobSecond)

	// First tab closing must not demote Bob: a fresh observer still sees
	// him connected.
	req.NoError(bobFirst.Close())
	time.Sleep(100 * time.Millisecond)

	carol := dial(t, server, "username=Carol")
	f := readFrame(t, carol)
	req.Equal(eventSession, f.Event)
	f = readFrame(t, carol)
	req.Equal(eventUsers, f.Event)
	var peers []wirePeer
	req.NoError(json.Unmarshal(f.Data, &peers))
	for _, p := range peers {
		if p.UserID == bobSession.UserID {
			req.True(p.Connected)
		}
	}

	// Last tab closing does.
	req.NoError(bobSecond.Close())
	f = readUntil(t, alice, eventUserDisconnected)
	var gone string
	req.NoError(json.Unmarshal(f.Data, &gone))
	req.Equal(bobSession.UserID, gone)
}

func Test_Content_Length_Validation_Boundary(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	alice := dial(t, server, "username=Alice")
	aliceSession := handshake(t, alice)
	bob := dial(t, server, "username=Bob")
	bobSession := handshake(t, bob)
	readUntil(t, alice, eventUserConnected)

	// 256 characters: rejected with an error frame, nothing delivered.
	send(t, alice, strings.Repeat("x", 256), bobSession.UserID)
	f := readUntil(t, alice, eventError)
	req.NotEmpty(f.Data)

	// Empty content: same rejection.
	send(t, alice, "", bobSession.UserID)
	readUntil(t, alice, eventError)

	// 255 characters: accepted and delivered.
	send(t, alice, strings.Repeat("y", 255), bobSession.UserID)
	delivered := readUntil(t, bob, eventPrivateMessage)
	var msg wireMessage
	req.NoError(json.Unmarshal(delivered.Data, &msg))
	req.Len(msg.Content, 255)
	req.Equal(aliceSession.UserID, msg.From)
}
