package runtime

import (
	"sync"

	"pm-lab/contract"

	"github.com/google/uuid"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[uuid.UUID]struct{}

// Registry is the process-local delivery-group membership table, keyed by
// userID. One identity may hold several live connections at once (several
// devices or tabs); presence flips only when the set becomes empty.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]Set // userID -> live connection IDs
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]Set)}
}

func (r *Registry) Add(userID string, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[userID]; !ok {
		r.groups[userID] = make(Set)
	}
	r.groups[userID][connID] = struct{}{}
}

// RemoveAndCount removes a connection and reports how many live connections
// remain for that identity. Removal and count happen under one lock: two
// sibling connections closing near-simultaneously must produce exactly one
// zero result, never two and never none.
func (r *Registry) RemoveAndCount(userID string, connID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[userID]
	if !ok {
		return 0
	}
	delete(members, connID)

	// If no connection is left for the identity, remove the group entirely
	if len(members) == 0 {
		delete(r.groups, userID)
		return 0
	}
	return len(members)
}

func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[userID])
}

// Total reports all live connections on this instance, across identities.
func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, members := range r.groups {
		total += len(members)
	}
	return total
}
