package network

import (
	"errors"
	"fmt"
	"time"

	"github.com/V4T54L/beacon/internal/domain"
)

// ErrUnsupportedProtocol is returned by NewTransport for an unknown protocol.
var ErrUnsupportedProtocol = errors.New("unsupported protocol")

// TransportOptions carries the configuration shared by all transports.
type TransportOptions struct {
	MaxConnections int
	KeepAlive      bool
	Compression    bool
	Timeout        time.Duration
}

// NewTransport returns the transport for protocol. The "stub" protocol
// yields a nil transport, which makes the Manager log-only.
func NewTransport(protocol string, opts TransportOptions) (domain.Transport, error) {
	switch protocol {
	case "stub":
		return nil, nil
	case "tcp":
		return NewTCPTransport(opts), nil
	case "http", "https":
		return NewHTTPTransport(opts), nil
	case "ws", "wss":
		return NewWebSocketTransport(opts), nil
	case "redis":
		return NewRedisTransport(opts), nil
	case "postgres":
		return NewPostgresTransport(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
}
