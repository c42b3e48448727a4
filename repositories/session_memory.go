package repositories

import (
	"time"

	"pm-lab/domain"

	"github.com/jellydator/ttlcache/v3"
)

// MemorySessionRepository keeps sessions in an in-memory TTL cache. It backs
// diskless single-instance runs and tests; the badger repository is the
// durable counterpart.
type MemorySessionRepository struct {
	cache *ttlcache.Cache[string, domain.Session]
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	cache := ttlcache.New[string, domain.Session](
		ttlcache.WithTTL[string, domain.Session](ttl),
	)
	go cache.Start()
	return &MemorySessionRepository{cache: cache}
}

func (r *MemorySessionRepository) SaveSession(sessionID string, session domain.Session) error {
	r.cache.Set(sessionID, session, ttlcache.DefaultTTL)
	return nil
}

func (r *MemorySessionRepository) FindSession(sessionID string) (domain.Session, bool, error) {
	item := r.cache.Get(sessionID)
	if item == nil {
		return domain.Session{}, false, nil
	}
	return item.Value(), true, nil
}

func (r *MemorySessionRepository) FindAllSessions() ([]domain.Session, error) {
	items := r.cache.Items()
	sessions := make([]domain.Session, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, item.Value())
	}
	return sessions, nil
}

func (r *MemorySessionRepository) Stop() {
	r.cache.Stop()
}
