package settings

import (
	"context"
	"sync"
)

// MemoryStore keeps settings in process. It backs the companion daemon and
// tests.
type MemoryStore struct {
	mu     sync.Mutex
	value  Settings
	stored bool
	subs   map[int]func(Settings)
	nextID int
}

// NewMemoryStore returns an empty store; loads see the defaults until the
// first save.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[int]func(Settings))}
}

func (m *MemoryStore) Load(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stored {
		return Defaults(), nil
	}
	return m.value, nil
}

func (m *MemoryStore) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.value, m.stored = s, true
	subs := make([]func(Settings), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return nil
}

func (m *MemoryStore) Watch(fn func(Settings)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}, nil
}
