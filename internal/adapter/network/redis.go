package network

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/beacon/internal/domain"
)

// RedisTransport connects to a redis server and health-checks it with PING.
type RedisTransport struct {
	poolSize int
}

func NewRedisTransport(opts TransportOptions) *RedisTransport {
	return &RedisTransport{poolSize: opts.MaxConnections}
}

func (t *RedisTransport) Dial(ctx context.Context, endpoint domain.Endpoint) (domain.Conn, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     endpoint.Address(),
		PoolSize: t.poolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", endpoint.Address(), err)
	}
	return &redisConn{client: client}, nil
}

type redisConn struct {
	client *redis.Client
}

func (c *redisConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisConn) Close() error {
	return c.client.Close()
}
