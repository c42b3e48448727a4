package auth

import (
	"testing"

	"pm-lab/domain"
	"pm-lab/errors"
	"pm-lab/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGate_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockISessionRepository(ctrl)
	gate := NewGate(mockRepo)

	t.Run("should reuse identity when sessionID is known", func(t *testing.T) {
		req := require.New(t)
		stored := domain.Session{
			SessionID: "known-session",
			UserID:    "user-1",
			Username:  "Alice",
			Connected: false,
		}
		mockRepo.EXPECT().
			FindSession("known-session").
			Return(stored, true, nil).
			Times(1)

		principal, err := gate.Resolve(Credentials{SessionID: "known-session"})

		req.NoError(err)
		req.Equal("known-session", principal.SessionID)
		req.Equal("user-1", principal.UserID)
		req.Equal("Alice", principal.Username)
	})

	t.Run("should mint fresh identity for unknown session with username", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			FindSession("expired-session").
			Return(domain.Session{}, false, nil).
			Times(1)

		principal, err := gate.Resolve(Credentials{SessionID: "expired-session", Username: "Bob"})

		req.NoError(err)
		req.Equal("Bob", principal.Username)
		req.NotEqual("expired-session", principal.SessionID)
		req.Len(principal.SessionID, 32) // 16 random bytes, hex encoded
		req.Len(principal.UserID, 32)
	})

	t.Run("should mint distinct identities for distinct connections", func(t *testing.T) {
		req := require.New(t)

		first, err := gate.Resolve(Credentials{Username: "Alice"})
		req.NoError(err)
		second, err := gate.Resolve(Credentials{Username: "Alice"})
		req.NoError(err)

		req.NotEqual(first.UserID, second.UserID)
		req.NotEqual(first.SessionID, second.SessionID)
	})

	t.Run("should reject when no session and no username", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be touched on the reject path
		_, err := gate.Resolve(Credentials{})

		req.ErrorIs(err, errors.ErrInvalidUsername)
	})

	t.Run("should reject blank username", func(t *testing.T) {
		req := require.New(t)

		_, err := gate.Resolve(Credentials{Username: "   "})

		req.ErrorIs(err, errors.ErrInvalidUsername)
	})

	t.Run("should surface store failure instead of minting a duplicate", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			FindSession("known-session").
			Return(domain.Session{}, false, errors.ErrStoreUnavailable).
			Times(1)

		_, err := gate.Resolve(Credentials{SessionID: "known-session", Username: "Alice"})

		req.ErrorIs(err, errors.ErrStoreUnavailable)
	})
}
