package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/V4T54L/beacon/internal/domain"
)

// TCPTransport opens plain TCP connections.
type TCPTransport struct {
	dialer net.Dialer
}

func NewTCPTransport(opts TransportOptions) *TCPTransport {
	t := &TCPTransport{}
	if !opts.KeepAlive {
		t.dialer.KeepAlive = -1
	} else {
		t.dialer.KeepAlive = 15 * time.Second
	}
	return t
}

func (t *TCPTransport) Dial(ctx context.Context, endpoint domain.Endpoint) (domain.Conn, error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", endpoint.Address())
	if err != nil {
		return nil, fmt.Errorf("tcp dial %s: %w", endpoint.Address(), err)
	}
	return conn, nil
}
