package network

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/V4T54L/beacon/internal/domain"
)

const wsControlTimeout = 5 * time.Second

// WebSocketTransport opens websocket connections to ws:// and wss:// endpoints.
type WebSocketTransport struct {
	dialer *websocket.Dialer
}

func NewWebSocketTransport(opts TransportOptions) *WebSocketTransport {
	return &WebSocketTransport{
		dialer: &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  opts.Timeout,
			EnableCompression: opts.Compression,
		},
	}
}

func (t *WebSocketTransport) Dial(ctx context.Context, endpoint domain.Endpoint) (domain.Conn, error) {
	conn, _, err := t.dialer.DialContext(ctx, endpoint.String()+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", endpoint, err)
	}
	c := &wsConn{conn: conn, done: make(chan struct{})}
	go c.readLoop()
	return c, nil
}

// wsConn drains inbound frames so control messages are processed, and
// remembers the first read error so Ping can report a dead peer.
type wsConn struct {
	conn *websocket.Conn
	done chan struct{}

	mu      sync.Mutex
	readErr error
}

func (c *wsConn) readLoop() {
	defer close(c.done)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}
	}
}

func (c *wsConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	readErr := c.readErr
	c.mu.Unlock()
	if readErr != nil {
		return fmt.Errorf("websocket closed: %w", readErr)
	}

	deadline := time.Now().Add(wsControlTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := c.conn.Close()
	<-c.done
	return err
}
