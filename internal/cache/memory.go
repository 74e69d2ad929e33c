package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Memory is a process-local Storage. Contents are lost on restart.
type Memory struct {
	mu         sync.RWMutex
	closed     bool
	namespaces map[string]map[string]*Entry
	now        func() time.Time
}

// NewMemory returns an empty in-memory Storage.
func NewMemory() *Memory {
	return &Memory{
		namespaces: make(map[string]map[string]*Entry),
		now:        time.Now,
	}
}

func (m *Memory) Open(_ context.Context, name string) (Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if _, ok := m.namespaces[name]; !ok {
		m.namespaces[name] = make(map[string]*Entry)
	}
	return &memoryCache{store: m, name: name}, nil
}

func (m *Memory) Names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	names := lo.Keys(m.namespaces)
	slices.Sort(names)
	return names, nil
}

func (m *Memory) Delete(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.namespaces[name]
	delete(m.namespaces, name)
	return ok, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.namespaces = nil
	return nil
}

type memoryCache struct {
	store *Memory
	name  string
}

func (c *memoryCache) Name() string { return c.name }

// entries returns the namespace map; callers hold store.mu. A namespace
// deleted after Open reads as empty, matching a fresh cache.
func (c *memoryCache) entries() map[string]*Entry {
	return c.store.namespaces[c.name]
}

func (c *memoryCache) Match(_ context.Context, key string) (*Entry, bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if c.store.closed {
		return nil, false, ErrClosed
	}
	e, ok := c.entries()[key]
	if !ok {
		return nil, false, nil
	}
	return e.Clone(), true, nil
}

func (c *memoryCache) Put(_ context.Context, key string, e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.closed {
		return ErrClosed
	}
	entries := c.entries()
	if entries == nil {
		entries = make(map[string]*Entry)
		c.store.namespaces[c.name] = entries
	}
	stored := e.Clone()
	if stored.StoredAt.IsZero() {
		stored.StoredAt = c.store.now()
	}
	entries[key] = stored
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.closed {
		return false, ErrClosed
	}
	entries := c.entries()
	_, ok := entries[key]
	delete(entries, key)
	return ok, nil
}

func (c *memoryCache) Keys(_ context.Context) ([]string, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if c.store.closed {
		return nil, ErrClosed
	}
	keys := lo.Keys(c.entries())
	slices.Sort(keys)
	return keys, nil
}
