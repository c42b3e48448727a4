package runtime

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Registry_Counts_Per_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	first, second := uuid.New(), uuid.New()
	registry.Add("alice", first)
	registry.Add("alice", second)
	registry.Add("bob", uuid.New())

	req.Equal(2, registry.Count("alice"))
	req.Equal(1, registry.Count("bob"))
	req.Equal(0, registry.Count("clara"))

	req.Equal(1, registry.RemoveAndCount("alice", first))
	req.Equal(0, registry.RemoveAndCount("alice", second))
	req.Equal(0, registry.Count("alice"))
}

func Test_Remove_Unknown_Connection_Is_Harmless(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.Equal(0, registry.RemoveAndCount("ghost", uuid.New()))
}

// Two tabs closing near-simultaneously must produce exactly one zero count:
// a double zero would double-broadcast "disconnected", no zero at all would
// suppress it entirely.
func Test_Concurrent_Sibling_Removal_Yields_One_Zero(t *testing.T) {
	req := require.New(t)

	for i := 0; i < 100; i++ {
		registry := NewRegistry()
		conns := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
		for _, id := range conns {
			registry.Add("alice", id)
		}

		var zeros atomic.Int32
		var wg sync.WaitGroup
		for _, id := range conns {
			wg.Add(1)
			go func(connID uuid.UUID) {
				defer wg.Done()
				if registry.RemoveAndCount("alice", connID) == 0 {
					zeros.Add(1)
				}
			}(id)
		}
		wg.Wait()

		req.Equal(int32(1), zeros.Load())
	}
}
