//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"pm-lab/domain"
	apperrors "pm-lab/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

type ISessionRepository interface {
	SaveSession(sessionID string, session domain.Session) error
	// FindSession reports found=false for an unknown or expired sessionID.
	// Not-found is a valid outcome (mint a new identity), not an error.
	FindSession(sessionID string) (domain.Session, bool, error)
	FindAllSessions() ([]domain.Session, error)
}

const sessionPrefix = "session:"

// SessionRepository persists sessions in BadgerDB under "session:{sessionID}".
// Every save rewrites the entry with a fresh TTL, so the retention window
// slides forward each time the session is used.
type SessionRepository struct {
	db  *badger.DB
	ttl time.Duration
}

func NewSessionRepository(db *badger.DB, ttl time.Duration) SessionRepository {
	return SessionRepository{db: db, ttl: ttl}
}

// diskSession is the stored shape. The sessionID lives in the key only;
// duplicating it in the value would let the two drift apart.
type diskSession struct {
	UserID    string `cbor:"1,keyasint"`
	Username  string `cbor:"2,keyasint"`
	Connected bool   `cbor:"3,keyasint"`
}

func (r SessionRepository) SaveSession(sessionID string, session domain.Session) error {
	value, err := cbor.Marshal(diskSession{
		UserID:    session.UserID,
		Username:  session.Username,
		Connected: session.Connected,
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(sessionPrefix+sessionID), value).WithTTL(r.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (r SessionRepository) FindSession(sessionID string) (domain.Session, bool, error) {
	var stored diskSession
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionPrefix + sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &stored)
		})
	})
	switch {
	case err == nil:
		return domain.Session{
			SessionID: sessionID,
			UserID:    stored.UserID,
			Username:  stored.Username,
			Connected: stored.Connected,
		}, true, nil
	case err == badger.ErrKeyNotFound:
		return domain.Session{}, false, nil
	default:
		return domain.Session{}, false, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
}

// FindAllSessions returns every session still inside the retention window,
// including disconnected ones. Badger filters out expired entries itself.
func (r SessionRepository) FindAllSessions() ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(sessionPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			sessionID := string(item.Key()[len(sessionPrefix):])
			err := item.Value(func(val []byte) error {
				var stored diskSession
				if err := cbor.Unmarshal(val, &stored); err != nil {
					return err
				}
				sessions = append(sessions, domain.Session{
					SessionID: sessionID,
					UserID:    stored.UserID,
					Username:  stored.Username,
					Connected: stored.Connected,
				})
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
	return sessions, nil
}
