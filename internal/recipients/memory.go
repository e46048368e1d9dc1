package recipients

import (
	"context"
	"sync"
)

// MemoryStore is the fallback used when Redis is not configured. Lists
// last only as long as the process; fine for local development, wrong
// for production.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string]string
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string]string)}
}

// Get returns the stored recipient string for one group.
func (m *MemoryStore) Get(_ context.Context, group string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lists[group], nil
}

// Save validates and stores a group's recipient list with the same
// semantics as the Redis store.
func (m *MemoryStore) Save(_ context.Context, group, raw string) error {
	addrs, err := Validate(raw)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(addrs) == 0 {
		delete(m.lists, group)
		return nil
	}
	m.lists[group] = Normalize(addrs)
	return nil
}

// Delete removes a group's stored list.
func (m *MemoryStore) Delete(_ context.Context, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, group)
	return nil
}

// All returns a copy of every stored group → recipient string pair.
func (m *MemoryStore) All(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.lists))
	for k, v := range m.lists {
		out[k] = v
	}
	return out, nil
}
