package ws

import (
	"encoding/json"

	"pm-lab/domain"
	"pm-lab/domain/event"

	"github.com/samber/lo"
)

// frame is the JSON shape exchanged on the websocket, both directions.
const (
	eventSession          = "session"
	eventUsers            = "users"
	eventUserConnected    = "user_connected"
	eventUserDisconnected = "user_disconnected"
	eventPrivateMessage   = "private_message"
	eventError            = "error"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func newFrame(eventName string, data any) (frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return frame{}, err
	}
	return frame{Event: eventName, Data: raw}, nil
}

// sessionPayload is emitted once, immediately after the gate accepts the
// connection. The client stores sessionID for resumption.
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

// inboundMessage is the only client-to-server payload. Content bounds are
// enforced here, before anything reaches the coordinator or the stores.
type inboundMessage struct {
	Content string `json:"content" validate:"required,min=1,max=255"`
	To      string `json:"to" validate:"required"`
}

func toWireMessage(m domain.DirectMessage) wireMessage {
	return wireMessage{Content: m.Content, From: m.From, To: m.To}
}

func toWirePeers(peers []domain.Peer) []wirePeer {
	return lo.Map(peers, func(p domain.Peer, _ int) wirePeer {
		return wirePeer{
			UserID:    p.UserID,
			Username:  p.Username,
			Connected: p.Connected,
			Messages:  lo.Map(p.Messages, func(m domain.DirectMessage, _ int) wireMessage {
				return toWireMessage(m)
			}),
		}
	})
}

// toOutboundFrame converts backplane events to client frames.
func toOutboundFrame(e event.DomainEvent) (frame, error) {
	switch evt := e.(type) {
	case event.PeerConnected:
		return newFrame(eventUserConnected, wirePeer{
			UserID:    evt.UserID,
			Username:  evt.Username,
			Connected: true,
			Messages:  []wireMessage{},
		})
	case event.PeerDisconnected:
		return newFrame(eventUserDisconnected, evt.UserID)
	case event.MessageDelivered:
		return newFrame(eventPrivateMessage, wireMessage{
			Content: evt.Content,
			From:    evt.From,
			To:      evt.To,
		})
	default:
		return newFrame(eventError, "unsupported event")
	}
}
