// Package domain contains core concepts of the messaging system.
// This file defines Session records and identity rules.
// No runtime, network, or UI logic should be added here.
package domain

// Session binds a secret session identifier to a stable public identity
// and its connectivity flag. The identity (UserID, Username) is immutable
// once minted; only Connected changes over the session's lifetime.
type Session struct {
	SessionID string
	UserID    string
	Username  string
	Connected bool
}

// Identity is the public part of a session, safe to broadcast to peers.
type Identity struct {
	UserID   string
	Username string
}

func (s Session) Identity() Identity {
	return Identity{UserID: s.UserID, Username: s.Username}
}
