// Package projection builds local read models from observed events.
// Handles presence and conversation state on the consumer side.
// Does not emit events or interact with transports directly.
package projection

import (
	"sort"
	"time"

	"pm-lab/domain"
	"pm-lab/domain/event"
)

// Directory mirrors the server-side peer snapshot on a client: who is
// known, who is online, and the conversation with each counterpart.
// Not safe for concurrent use; feed it from a single consumer loop.
type Directory struct {
	SelfID string
	peers  map[string]*domain.Peer
}

func NewDirectory(selfID string) *Directory {
	return &Directory{SelfID: selfID, peers: make(map[string]*domain.Peer)}
}

// Seed loads the initial snapshot, replacing any previous state for the
// listed peers.
func (d *Directory) Seed(peers []domain.Peer) {
	for _, p := range peers {
		peer := p
		d.peers[p.UserID] = &peer
	}
}

func (d *Directory) Consume(e event.DomainEvent) {
	switch evt := e.(type) {
	case event.PeerConnected:
		peer := d.peer(evt.UserID)
		peer.Username = evt.Username
		peer.Connected = true
	case event.PeerDisconnected:
		if peer, ok := d.peers[evt.UserID]; ok {
			peer.Connected = false
		}
	case event.MessageDelivered:
		counterpart := evt.From
		if counterpart == d.SelfID {
			counterpart = evt.To
		}
		peer := d.peer(counterpart)
		peer.Messages = append(peer.Messages, domain.DirectMessage{
			ID:      evt.ID,
			Content: evt.Content,
			From:    evt.From,
			To:      evt.To,
			At:      time.Unix(0, evt.At).UTC(),
		})
	}
}

// Peer returns the known state for userID.
func (d *Directory) Peer(userID string) (domain.Peer, bool) {
	peer, ok := d.peers[userID]
	if !ok {
		return domain.Peer{}, false
	}
	return *peer, true
}

// Peers returns every known peer, sorted by username for stable display.
func (d *Directory) Peers() []domain.Peer {
	out := make([]domain.Peer, 0, len(d.peers))
	for _, p := range d.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (d *Directory) peer(userID string) *domain.Peer {
	if peer, ok := d.peers[userID]; ok {
		return peer
	}
	peer := &domain.Peer{UserID: userID}
	d.peers[userID] = peer
	return peer
}
