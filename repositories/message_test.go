package repositories

import (
	"testing"
	"time"

	"pm-lab/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Store_And_Fetch_Messages_For_Both_Participants(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t))

	at := time.Now().UTC().Truncate(time.Nanosecond)
	messages := []domain.DirectMessage{
		{ID: uuid.New(), Content: "hello bob", From: "alice", To: "bob", At: at},
		{ID: uuid.New(), Content: "hello alice", From: "bob", To: "alice", At: at.Add(time.Second)},
		{ID: uuid.New(), Content: "how are you?", From: "alice", To: "bob", At: at.Add(2 * time.Second)},
	}
	for _, m := range messages {
		req.NoError(repository.StoreMessage(m))
	}

	forAlice, err := repository.MessagesForUser("alice")
	req.NoError(err)
	req.Equal(messages, forAlice)

	forBob, err := repository.MessagesForUser("bob")
	req.NoError(err)
	req.Equal(messages, forBob)
}

func Test_Messages_Are_Chronologically_Ordered(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t))

	at := time.Now().UTC()
	// Stored out of order on purpose; the padded-timestamp key must fix it.
	req.NoError(repository.StoreMessage(domain.DirectMessage{
		ID: uuid.New(), Content: "second", From: "alice", To: "bob", At: at.Add(time.Minute),
	}))
	req.NoError(repository.StoreMessage(domain.DirectMessage{
		ID: uuid.New(), Content: "first", From: "bob", To: "alice", At: at,
	}))

	fetched, err := repository.MessagesForUser("alice")
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("first", fetched[0].Content)
	req.Equal("second", fetched[1].Content)
}

func Test_Uninvolved_User_Sees_Nothing(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t))

	req.NoError(repository.StoreMessage(domain.DirectMessage{
		ID: uuid.New(), Content: "private", From: "alice", To: "bob", At: time.Now().UTC(),
	}))

	fetched, err := repository.MessagesForUser("clara")
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Self_Addressed_Message_Is_Stored_Once(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t))

	req.NoError(repository.StoreMessage(domain.DirectMessage{
		ID: uuid.New(), Content: "note to self", From: "alice", To: "alice", At: time.Now().UTC(),
	}))

	fetched, err := repository.MessagesForUser("alice")
	req.NoError(err)
	req.Len(fetched, 1)
}
