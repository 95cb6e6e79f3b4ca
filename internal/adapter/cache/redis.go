package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/beacon/internal/adapter/metrics"
)

const (
	defaultKeyPrefix = "beacon:cache:"
	scanBatchSize    = 256
)

// Redis stores entries in a Redis keyspace under a fixed prefix. Values are
// JSON-encoded, so Get returns the decoded JSON form of what was stored
// (maps, slices, float64, string, bool or nil) rather than the original Go
// value. With compression enabled payloads are zstd-compressed.
type Redis struct {
	client   *redis.Client
	logger   *slog.Logger
	prefix   string
	metrics  *metrics.RuntimeMetrics
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// NewRedis creates a Redis-backed cache. m may be nil.
func NewRedis(client *redis.Client, logger *slog.Logger, compress bool, m *metrics.RuntimeMetrics) (*Redis, error) {
	c := &Redis{
		client:   client,
		logger:   logger.With("component", "redis_cache"),
		prefix:   defaultKeyPrefix,
		metrics:  m,
		compress: compress,
	}
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		c.encoder = enc
		c.decoder = dec
	}
	return c, nil
}

func (c *Redis) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %q: %w", key, err)
	}
	if c.compress {
		payload = c.encoder.EncodeAll(payload, nil)
	}

	if err := c.client.Set(ctx, c.prefix+key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to SET cache key %q: %w", key, err)
	}
	return nil
}

func (c *Redis) Get(ctx context.Context, key string) (any, bool, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			recordLookup(c.metrics, false)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to GET cache key %q: %w", key, err)
	}

	if c.compress {
		payload, err = c.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decompress cache value for %q: %w", key, err)
		}
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache value for %q: %w", key, err)
	}
	recordLookup(c.metrics, true)
	return value, true, nil
}

func (c *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to SCAN cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to DEL cache keys: %w", err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("cache cleared", "keys", removed)
	return nil
}

// Close releases the zstd codec resources. The redis client is owned by the caller.
func (c *Redis) Close() error {
	if c.decoder != nil {
		c.decoder.Close()
	}
	if c.encoder != nil {
		return c.encoder.Close()
	}
	return nil
}
