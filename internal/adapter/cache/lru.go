package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/V4T54L/beacon/internal/adapter/metrics"
)

// LRU is a size-bounded in-process cache that evicts the least recently used
// entry once it holds maxEntries values.
type LRU struct {
	entries *lru.Cache[string, any]
	metrics *metrics.RuntimeMetrics
}

// NewLRU creates an LRU cache holding at most maxEntries values.
func NewLRU(maxEntries int, m *metrics.RuntimeMetrics) (*LRU, error) {
	entries, err := lru.New[string, any](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU{entries: entries, metrics: m}, nil
}

func (c *LRU) Set(_ context.Context, key string, value any) error {
	c.entries.Add(key, value)
	return nil
}

func (c *LRU) Get(_ context.Context, key string) (any, bool, error) {
	value, ok := c.entries.Get(key)
	recordLookup(c.metrics, ok)
	return value, ok, nil
}

func (c *LRU) Clear(_ context.Context) error {
	c.entries.Purge()
	return nil
}

// Len returns the number of stored entries.
func (c *LRU) Len() int {
	return c.entries.Len()
}
