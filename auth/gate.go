package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"pm-lab/domain"
	apperrors "pm-lab/errors"
	"pm-lab/repositories"
)

// Credentials is what a client presents when opening a connection.
// SessionID is private and authenticates resumption; Username is the public
// display name used only when minting a fresh identity.
type Credentials struct {
	SessionID string
	Username  string
}

// Principal is the identity bound to a connection for its whole lifetime.
type Principal struct {
	SessionID string
	UserID    string
	Username  string
}

// Gate runs once per incoming connection, before any registration or store
// mutation. Resolution is idempotent: reconnecting with the same valid
// sessionID always rebinds to the same identity.
type Gate struct {
	sessions repositories.ISessionRepository
}

func NewGate(sessions repositories.ISessionRepository) Gate {
	return Gate{sessions: sessions}
}

// Resolve reuses the identity of a known session, mints a fresh one for a
// named newcomer, and rejects everything else with ErrInvalidUsername.
// A store failure during lookup surfaces as-is rather than silently minting
// a duplicate identity for an existing user.
func (g Gate) Resolve(creds Credentials) (Principal, error) {
	if creds.SessionID != "" {
		session, found, err := g.sessions.FindSession(creds.SessionID)
		if err != nil {
			return Principal{}, err
		}
		if found {
			return Principal{
				SessionID: creds.SessionID,
				UserID:    session.UserID,
				Username:  session.Username,
			}, nil
		}
		// Unknown or expired sessionID: fall through to the mint path.
	}

	username := strings.TrimSpace(creds.Username)
	if username == "" {
		return Principal{}, apperrors.ErrInvalidUsername
	}

	return Principal{
		SessionID: RandomID(),
		UserID:    RandomID(),
		Username:  username,
	}, nil
}

// Session builds the session record for this principal with the given
// connectivity flag.
func (p Principal) Session(connected bool) domain.Session {
	return domain.Session{
		SessionID: p.SessionID,
		UserID:    p.UserID,
		Username:  p.Username,
		Connected: connected,
	}
}

// RandomID returns 128 bits of entropy encoded as hex, collision-resistant
// enough to serve as both session and user identifiers.
func RandomID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
