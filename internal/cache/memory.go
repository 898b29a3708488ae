package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hazz-dev/resmon/internal/check"
)

// Memory is an in-process Cache backed by a mutex-guarded map.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(ctx context.Context, name string) (*Entry, error) {
	m.mu.RLock()
	entry, ok := m.entries[name]
	m.mu.RUnlock()

	if !ok || entry.Expired() {
		return nil, ErrMiss
	}
	return &entry, nil
}

func (m *Memory) Last(ctx context.Context, name string) (*Entry, error) {
	m.mu.RLock()
	entry, ok := m.entries[name]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	return &entry, nil
}

func (m *Memory) Put(ctx context.Context, name string, result check.Result, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = Entry{
		Result:    result,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}
