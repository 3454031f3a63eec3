package agent

import (
	"context"
	"sync"
	"time"
)

type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type memoryEntry[S any] struct {
	val     S
	expires time.Time
}

// MemoryCache is an in-process Cache. Entries older than the TTL are
// invisible and removed on access or by Sweep. A zero TTL keeps entries forever.
type MemoryCache[S any] struct {
	mu  sync.RWMutex
	m   map[string]memoryEntry[S]
	ttl time.Duration
	now func() time.Time
}

func NewMemoryCache[S any](ttl time.Duration) *MemoryCache[S] {
	return &MemoryCache[S]{m: map[string]memoryEntry[S]{}, ttl: ttl, now: time.Now}
}

func (m *MemoryCache[S]) expired(e memoryEntry[S], now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	e := memoryEntry[S]{val: val}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.m[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.RLock()
	e, ok := m.m[key]
	m.mu.RUnlock()
	if ok && m.expired(e, m.now()) {
		_ = m.Del(ctx, key)
		ok = false
	}
	if !ok {
		var zero S
		return zero, false, nil
	}
	return e.val, true, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.m, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryCache[S]) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, e := range m.m {
		if m.expired(e, now) {
			delete(m.m, key)
			removed++
		}
	}
	return removed
}
