package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/beacon/internal/domain"
)

// MockTransport is a mock implementation of domain.Transport for testing.
// DialErrs are consumed in order, one per Dial call; once exhausted Dial
// succeeds with Conn (or a fresh MockConn when Conn is nil).
type MockTransport struct {
	mu       sync.Mutex
	DialErrs []error
	Conn     *MockConn
	Dialed   []domain.Endpoint
	Block    bool
}

func (m *MockTransport) Dial(ctx context.Context, endpoint domain.Endpoint) (domain.Conn, error) {
	m.mu.Lock()
	m.Dialed = append(m.Dialed, endpoint)
	block := m.Block
	var err error
	if len(m.DialErrs) > 0 {
		err = m.DialErrs[0]
		m.DialErrs = m.DialErrs[1:]
	}
	conn := m.Conn
	if conn == nil {
		conn = &MockConn{}
		m.Conn = conn
	}
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SetBlock changes whether subsequent dials wait for their context to end.
func (m *MockTransport) SetBlock(block bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Block = block
}

// Calls returns the number of Dial invocations so far.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Dialed)
}

// MockConn is a mock domain.Conn that also implements domain.Pinger.
type MockConn struct {
	mu      sync.Mutex
	PingErr error
	Closed  int
	Pings   int
}

func (c *MockConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Pings++
	return c.PingErr
}

func (c *MockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed++
	return nil
}

// SetPingErr changes the error returned by subsequent pings.
func (c *MockConn) SetPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PingErr = err
}

// CloseCount returns how many times Close was called.
func (c *MockConn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Closed
}

// MockPublisher records every emitted event.
type MockPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

// PublishedEvent is a single recorded Emit call.
type PublishedEvent struct {
	Name string
	Data any
}

func (p *MockPublisher) Emit(event string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{Name: event, Data: data})
	return p.Err
}

// Named returns the payloads published under event, in order.
func (p *MockPublisher) Named(event string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, e := range p.Events {
		if e.Name == event {
			out = append(out, e.Data)
		}
	}
	return out
}

// MockCache is a mock implementation of domain.Cache for testing.
type MockCache struct {
	mu       sync.Mutex
	Data     map[string]any
	SetErr   error
	GetErr   error
	ClearErr error
}

func (m *MockCache) Set(ctx context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.Data == nil {
		m.Data = make(map[string]any)
	}
	m.Data[key] = value
	return nil
}

func (m *MockCache) Get(ctx context.Context, key string) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.Data[key]
	return v, ok, nil
}

func (m *MockCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Data = nil
	return nil
}
