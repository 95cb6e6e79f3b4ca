package domain

import (
	"context"
	"io"
)

// Cache defines the key-value store shared by runtime components.
// A missing key is reported through the boolean, never as an error.
type Cache interface {
	// Set stores value under key, replacing any previous entry.
	Set(ctx context.Context, key string, value any) error

	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (any, bool, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// Conn is an established transport connection.
type Conn interface {
	io.Closer
}

// Pinger is implemented by connections that can be health-checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Transport opens connections to an endpoint. Implementations are selected
// by the endpoint protocol.
type Transport interface {
	Dial(ctx context.Context, endpoint Endpoint) (Conn, error)
}

// Publisher is the emitting half of the event dispatcher.
type Publisher interface {
	Emit(event string, data any) error
}
