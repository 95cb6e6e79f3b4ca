package network

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/V4T54L/beacon/internal/domain"
)

// HTTPTransport treats a successful HEAD / probe as a connection. The
// returned conn keeps the pooled client and re-probes on Ping.
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(opts TransportOptions) *HTTPTransport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxConnsPerHost = opts.MaxConnections
	tr.MaxIdleConnsPerHost = opts.MaxConnections
	tr.DisableKeepAlives = !opts.KeepAlive
	// With compression on the client advertises gzip and decodes it transparently.
	tr.DisableCompression = !opts.Compression
	return &HTTPTransport{client: &http.Client{Transport: tr}}
}

func (t *HTTPTransport) Dial(ctx context.Context, endpoint domain.Endpoint) (domain.Conn, error) {
	conn := &httpConn{client: t.client, url: endpoint.String() + "/"}
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

type httpConn struct {
	client *http.Client
	url    string
}

func (c *httpConn) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http probe %s: %w", c.url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("http probe %s returned %s", c.url, resp.Status)
	}
	return nil
}

func (c *httpConn) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
