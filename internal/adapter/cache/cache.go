// Package cache provides the key-value store backends used by the runtime.
package cache

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/beacon/internal/adapter/metrics"
	"github.com/V4T54L/beacon/internal/domain"
	"github.com/V4T54L/beacon/internal/pkg/config"
)

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// New builds the backend named by cfg.CacheBackend. client is only used by
// the redis backend and may be nil otherwise.
func New(cfg config.Config, client *redis.Client, logger *slog.Logger, m *metrics.RuntimeMetrics) (domain.Cache, error) {
	switch cfg.CacheBackend {
	case "", "memory":
		return NewMemory(m), nil
	case "lru":
		return NewLRU(cfg.CacheMaxEntries, m)
	case "redis":
		if client == nil {
			return nil, errors.New("redis cache backend requires a redis client")
		}
		return NewRedis(client, logger, cfg.Compression, m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.CacheBackend)
	}
}
