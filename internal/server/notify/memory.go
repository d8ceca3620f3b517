package notify

import (
	"context"
	"sync"
)

// Memory is an in-process Notifier.
type Memory struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[int]chan struct{})}
}

func (m *Memory) Publish(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subs[collection] {
		signal(ch)
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, collection string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[int]chan struct{})
	}
	m.subs[collection][id] = ch
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[collection], id)
			if len(m.subs[collection]) == 0 {
				delete(m.subs, collection)
			}
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Subscribers reports the number of live subscriptions for collection.
func (m *Memory) Subscribers(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[collection])
}
