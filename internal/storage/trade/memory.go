// internal/storage/trade/memory.go
package trade

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/zella/internal/core"
)

// MemoryStore is an in-memory trade store.
type MemoryStore struct {
	journals   map[string]map[string]core.Trade
	maxPerUser int
	mu         sync.RWMutex
}

// NewMemoryStore creates a store holding at most maxPerUser trades per
// user. Zero means unlimited.
func NewMemoryStore(maxPerUser int) *MemoryStore {
	return &MemoryStore{
		journals:   make(map[string]map[string]core.Trade),
		maxPerUser: maxPerUser,
	}
}

// Put stores a copy of t.
func (m *MemoryStore) Put(ctx context.Context, userID string, t core.Trade) error {
	if t.ID == "" {
		return core.WrapError(core.ErrInvalidTrade, fmt.Errorf("trade id is empty"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	journal, ok := m.journals[userID]
	if !ok {
		journal = make(map[string]core.Trade)
		m.journals[userID] = journal
	}
	if _, exists := journal[t.ID]; !exists && m.maxPerUser > 0 && len(journal) >= m.maxPerUser {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("journal of %s is full (%d trades)", userID, m.maxPerUser))
	}
	journal[t.ID] = clone(t)
	return nil
}

// Get retrieves a trade by id.
func (m *MemoryStore) Get(ctx context.Context, userID, id string) (core.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.journals[userID][id]
	if !ok {
		return core.Trade{}, notFound(id)
	}
	return clone(t), nil
}

// Delete removes a trade.
func (m *MemoryStore) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.journals[userID][id]; !ok {
		return notFound(id)
	}
	delete(m.journals[userID], id)
	return nil
}

// Snapshot copies a user's journal.
func (m *MemoryStore) Snapshot(ctx context.Context, userID string) (map[string]core.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]core.Trade, len(m.journals[userID]))
	for id, t := range m.journals[userID] {
		out[id] = clone(t)
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// clone detaches slice fields so callers cannot mutate stored trades.
func clone(t core.Trade) core.Trade {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	if t.Mistakes != nil {
		t.Mistakes = append([]string(nil), t.Mistakes...)
	}
	return t
}
