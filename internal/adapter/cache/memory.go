package cache

import (
	"context"
	"sync"

	"github.com/V4T54L/beacon/internal/adapter/metrics"
)

// Memory is an unbounded in-process cache. Entries live until they are
// overwritten or the cache is cleared; Get returns exactly the value Set
// stored, without copying.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]any
	metrics *metrics.RuntimeMetrics
}

// NewMemory creates an empty Memory cache. m may be nil.
func NewMemory(m *metrics.RuntimeMetrics) *Memory {
	return &Memory{
		entries: make(map[string]any),
		metrics: m,
	}
}

func (c *Memory) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *Memory) Get(_ context.Context, key string) (any, bool, error) {
	c.mu.RLock()
	value, ok := c.entries[key]
	c.mu.RUnlock()

	recordLookup(c.metrics, ok)
	return value, ok, nil
}

func (c *Memory) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	return nil
}

// Len returns the number of stored entries.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func recordLookup(m *metrics.RuntimeMetrics, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}
