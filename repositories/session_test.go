package repositories

import (
	"testing"
	"time"

	"pm-lab/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Save_And_Find_Session(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openTestDB(t), time.Hour)

	session := domain.Session{
		SessionID: "s-1",
		UserID:    "u-1",
		Username:  "Alice",
		Connected: true,
	}
	req.NoError(repository.SaveSession(session.SessionID, session))

	found, ok, err := repository.FindSession("s-1")
	req.NoError(err)
	req.True(ok)
	req.Equal(session, found)
}

func Test_Find_Unknown_Session_Is_Not_An_Error(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openTestDB(t), time.Hour)

	_, ok, err := repository.FindSession("never-seen")
	req.NoError(err)
	req.False(ok)
}

func Test_Save_Session_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openTestDB(t), time.Hour)

	session := domain.Session{SessionID: "s-1", UserID: "u-1", Username: "Alice", Connected: true}
	req.NoError(repository.SaveSession(session.SessionID, session))
	req.NoError(repository.SaveSession(session.SessionID, session))

	all, err := repository.FindAllSessions()
	req.NoError(err)
	req.Len(all, 1)
	req.Equal(session, all[0])
}

func Test_Save_Session_Overwrites_Connected_Flag(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openTestDB(t), time.Hour)

	session := domain.Session{SessionID: "s-1", UserID: "u-1", Username: "Alice", Connected: true}
	req.NoError(repository.SaveSession(session.SessionID, session))

	session.Connected = false
	req.NoError(repository.SaveSession(session.SessionID, session))

	found, ok, err := repository.FindSession("s-1")
	req.NoError(err)
	req.True(ok)
	req.False(found.Connected)
}

func Test_Find_All_Sessions_Includes_Disconnected(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openTestDB(t), time.Hour)

	sessions := []domain.Session{
		{SessionID: "s-1", UserID: "u-1", Username: "Alice", Connected: true},
		{SessionID: "s-2", UserID: "u-2", Username: "Bob", Connected: false},
		{SessionID: "s-3", UserID: "u-3", Username: "Clara", Connected: true},
	}
	for _, s := range sessions {
		req.NoError(repository.SaveSession(s.SessionID, s))
	}

	all, err := repository.FindAllSessions()
	req.NoError(err)
	req.ElementsMatch(sessions, all)
}

func Test_Session_Expires_After_TTL(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openTestDB(t), 50*time.Millisecond)

	session := domain.Session{SessionID: "s-1", UserID: "u-1", Username: "Alice", Connected: false}
	req.NoError(repository.SaveSession(session.SessionID, session))

	time.Sleep(100 * time.Millisecond)

	_, ok, err := repository.FindSession("s-1")
	req.NoError(err)
	req.False(ok)
}

func Test_Memory_Session_Repository(t *testing.T) {
	req := require.New(t)
	repository := NewMemorySessionRepository(time.Hour)
	defer repository.Stop()

	session := domain.Session{SessionID: "s-1", UserID: "u-1", Username: "Alice", Connected: true}
	req.NoError(repository.SaveSession(session.SessionID, session))

	found, ok, err := repository.FindSession("s-1")
	req.NoError(err)
	req.True(ok)
	req.Equal(session, found)

	all, err := repository.FindAllSessions()
	req.NoError(err)
	req.Len(all, 1)
}
