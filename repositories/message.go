//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"pm-lab/domain"
	apperrors "pm-lab/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message domain.DirectMessage) error
	// MessagesForUser returns every message where userID is sender or
	// recipient, oldest first.
	MessagesForUser(userID string) ([]domain.DirectMessage, error)
}

// MessageRepository persists direct messages in BadgerDB.
// Each message is written twice, once per participant, under
// "dm:{userID}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Make a single prefix scan on either participant return the full
//     conversation set, with UUID as a collision disconnector if two
//     messages land on the same nanosecond.
type MessageRepository struct {
	db *badger.DB
}

func NewMessageRepository(db *badger.DB) MessageRepository {
	return MessageRepository{db: db}
}

type diskMessage struct {
	ID      string `cbor:"1,keyasint"`
	Content string `cbor:"2,keyasint"`
	From    string `cbor:"3,keyasint"`
	To      string `cbor:"4,keyasint"`
	At      int64  `cbor:"5,keyasint"`
}

func messageKey(userID string, m domain.DirectMessage) []byte {
	return []byte(fmt.Sprintf("dm:%s:%019d:%s", userID, m.At.UnixNano(), m.ID))
}

func (r MessageRepository) StoreMessage(message domain.DirectMessage) error {
	value, err := cbor.Marshal(diskMessage{
		ID:      message.ID.String(),
		Content: message.Content,
		From:    message.From,
		To:      message.To,
		At:      message.At.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.From, message), value); err != nil {
			return err
		}
		if message.To == message.From {
			// Self-addressed message, one index entry is enough.
			return nil
		}
		return txn.Set(messageKey(message.To, message), value)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// MessagesForUser performs a prefix scan on "dm:{userID}:". Thanks to the
// padded timestamp in the key, messages come back naturally sorted by time.
func (r MessageRepository) MessagesForUser(userID string) ([]domain.DirectMessage, error) {
	var messages []domain.DirectMessage
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("dm:" + userID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var stored diskMessage
				if err := cbor.Unmarshal(val, &stored); err != nil {
					return err
				}
				msg, err := toDirectMessage(stored)
				if err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return messages, nil
}

func toDirectMessage(stored diskMessage) (domain.DirectMessage, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.DirectMessage{}, err
	}
	return domain.DirectMessage{
		ID:      parsedID,
		Content: stored.Content,
		From:    stored.From,
		To:      stored.To,
		At:      time.Unix(0, stored.At).UTC(),
	}, nil
}
