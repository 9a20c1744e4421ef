package cache

import (
	"context"
	"sync"
	"time"

	"seo-opportunity/internal/clock"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is an in-memory get-or-load cache. Loads run outside the lock, so two
// callers missing the same key at once may both load; the last write wins.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
	clock   clock.Clock
}

func NewTTL[K comparable, V any](ttl time.Duration, c clock.Clock) *TTL[K, V] {
	if c == nil {
		c = clock.Real{}
	}
	return &TTL[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		clock:   c,
	}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
}

// GetOrLoad returns the cached value for key, calling load on a miss or after
// expiry. Failed loads are not cached.
func (c *TTL[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}
