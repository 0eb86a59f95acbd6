package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"
)

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	ttl   time.Duration
	now   func() time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{items: make(map[string]entry[V]), ttl: ttl, now: time.Now}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.data, true
}

func (c *Cache[V]) Set(key string, data V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{data: data, expiresAt: c.now().Add(c.ttl)}
}

// Sweep drops expired entries and reports how many were removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// CoordinateKey rounds to roughly one kilometre so nearby lookups share an entry.
func CoordinateKey(c models.Coordinates) string {
	return fmt.Sprintf("%.2f,%.2f", c.Lat, c.Lon)
}
