package domain

// Peer is one entry of the snapshot sent to a freshly-connected client:
// a known identity, its live presence, and the message history exchanged
// between that identity and the connecting user.
type Peer struct {
	UserID    string
	Username  string
	Connected bool
	Messages  []DirectMessage
}
