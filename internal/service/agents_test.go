package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/email-qc/internal/repository"
	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service/mocks"
)

// memoryAgentStore is a concurrency-safe AgentStore for resolver tests.
type memoryAgentStore struct {
	mu      sync.Mutex
	agents  map[int64]scoring.Agent
	gets    atomic.Int32
	upserts atomic.Int32
}

func newMemoryAgentStore() *memoryAgentStore {
	return &memoryAgentStore{agents: make(map[int64]scoring.Agent)}
}

func (m *memoryAgentStore) GetAgent(_ context.Context, id int64) (scoring.Agent, error) {
	m.gets.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return scoring.Agent{}, repository.ErrAgentNotFound
	}
	return a, nil
}

func (m *memoryAgentStore) UpsertAgent(_ context.Context, a scoring.Agent) error {
	m.upserts.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[a.ID] = a
	return nil
}

func TestAgentResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("new agent is looked up and stored", func(t *testing.T) {
		store := newMemoryAgentStore()
		dir := &mocks.MockAgentDirectory{
			LookupAgentFunc: func(ctx context.Context, id int64) (scoring.Agent, error) {
				return scoring.Agent{Name: "Ana Lima", Email: "ana@example.com"}, nil
			},
		}
		r, err := NewAgentResolver(store, dir, 4, zap.NewNop())
		require.NoError(t, err)

		a, err := r.Resolve(ctx, 7)

		require.NoError(t, err)
		assert.Equal(t, scoring.Agent{ID: 7, Name: "Ana Lima", Email: "ana@example.com"}, a)
		assert.Equal(t, a, store.agents[7])
	})

	t.Run("known agent comes from the store then the cache", func(t *testing.T) {
		store := newMemoryAgentStore()
		store.agents[3] = scoring.Agent{ID: 3, Name: "Bo"}
		r, err := NewAgentResolver(store, nil, 4, zap.NewNop())
		require.NoError(t, err)

		for range 3 {
			a, err := r.Resolve(ctx, 3)
			require.NoError(t, err)
			assert.Equal(t, "Bo", a.Name)
		}

		assert.Equal(t, int32(1), store.gets.Load())
		assert.Equal(t, int32(0), store.upserts.Load())
	})

	t.Run("directory failure stores a placeholder", func(t *testing.T) {
		store := newMemoryAgentStore()
		dir := &mocks.MockAgentDirectory{
			LookupAgentFunc: func(ctx context.Context, id int64) (scoring.Agent, error) {
				return scoring.Agent{}, errors.New("401 unauthorized")
			},
		}
		r, err := NewAgentResolver(store, dir, 4, zap.NewNop())
		require.NoError(t, err)

		a, err := r.Resolve(ctx, 9)

		require.NoError(t, err)
		assert.Equal(t, scoring.Agent{ID: 9}, a)
		assert.Contains(t, store.agents, int64(9))
	})

	t.Run("store errors propagate", func(t *testing.T) {
		store := &mocks.MockAgentStore{
			GetAgentFunc: func(ctx context.Context, id int64) (scoring.Agent, error) {
				return scoring.Agent{}, errors.New("disk full")
			},
		}
		r, err := NewAgentResolver(store, nil, 4, zap.NewNop())
		require.NoError(t, err)

		_, err = r.Resolve(ctx, 1)

		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("concurrent first encounters upsert once", func(t *testing.T) {
		store := newMemoryAgentStore()
		r, err := NewAgentResolver(store, nil, 4, zap.NewNop())
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.Resolve(ctx, 42)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, store.upserts.Load(), int32(16))
		assert.Contains(t, store.agents, int64(42))
	})

	t.Run("nil store panics", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = NewAgentResolver(nil, nil, 4, zap.NewNop())
		})
	})
}
