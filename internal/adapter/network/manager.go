// Package network holds the connection manager and the transports it can
// drive. With no transport the manager behaves as a stub: Connect only
// logs the target and the state never leaves disconnected.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/V4T54L/beacon/internal/adapter/metrics"
	"github.com/V4T54L/beacon/internal/domain"
)

const defaultRetryBackoff = 1 * time.Second

var (
	// ErrConnectInProgress is returned when Connect is called while another
	// Connect is still dialing.
	ErrConnectInProgress = errors.New("connect already in progress")
	// ErrConnectAborted is returned by a connect loop that Disconnect or a
	// newer Connect overtook.
	ErrConnectAborted = errors.New("connect aborted by disconnect")
)

// Options controls how the manager dials.
type Options struct {
	Endpoint      domain.Endpoint
	Timeout       time.Duration // per dial attempt
	RetryAttempts int           // attempts after the first
	RetryBackoff  time.Duration // minimum spacing between attempts
	KeepAlive     bool          // reconnect from the health check
}

// Manager owns the connection status and the live connection, if any.
type Manager struct {
	transport domain.Transport
	opts      Options
	logger    *slog.Logger
	publisher domain.Publisher
	metrics   *metrics.RuntimeMetrics
	limiter   *rate.Limiter

	mu       sync.Mutex
	state    domain.ConnectionState
	conn     domain.Conn
	attempts int
	stopped  bool
	// gen identifies the current connect loop; Disconnect and every new
	// loop bump it so a stale loop stops at its next step.
	gen uint64
}

// NewManager creates a Manager in the disconnected state. transport,
// publisher and m may be nil.
func NewManager(transport domain.Transport, opts Options, logger *slog.Logger, publisher domain.Publisher, m *metrics.RuntimeMetrics) *Manager {
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	mgr := &Manager{
		transport: transport,
		opts:      opts,
		logger:    logger.With("component", "network"),
		publisher: publisher,
		metrics:   m,
		limiter:   rate.NewLimiter(rate.Every(opts.RetryBackoff), 1),
		state:     domain.StateDisconnected,
	}
	if m != nil {
		m.ConnectionState.Set(float64(domain.StateDisconnected))
	}
	return mgr
}

// Status returns the current connection state.
func (m *Manager) Status() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReconnectAttempts returns the number of dial attempts made since the last
// successful connection.
func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Endpoint returns the dial target.
func (m *Manager) Endpoint() domain.Endpoint {
	return m.opts.Endpoint
}

// Connect logs the target and, when a transport is configured, dials it up
// to 1+RetryAttempts times. Each attempt is bounded by Timeout and attempts
// are spaced by at least RetryBackoff.
func (m *Manager) Connect(ctx context.Context) error {
	return m.connect(ctx, true)
}

// connect clears the stopped flag when resume is set; otherwise it gives up
// with ErrConnectAborted once Disconnect has been called.
func (m *Manager) connect(ctx context.Context, resume bool) error {
	target := m.opts.Endpoint.String()
	m.logger.Info("Attempting to connect to " + target)

	if m.transport == nil {
		return nil
	}

	m.mu.Lock()
	switch m.state {
	case domain.StateConnected:
		m.mu.Unlock()
		return nil
	case domain.StateConnecting:
		m.mu.Unlock()
		return ErrConnectInProgress
	}
	if m.stopped && !resume {
		m.mu.Unlock()
		return ErrConnectAborted
	}
	m.state = domain.StateConnecting
	m.stopped = false
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	m.announce(domain.StateDisconnected, domain.StateConnecting, nil)

	var lastErr error
	maxAttempts := m.opts.RetryAttempts + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !m.current(gen) {
			return ErrConnectAborted
		}
		if err := m.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		conn, err := m.dial(ctx)
		if err == nil {
			return m.established(conn, attempt, gen)
		}

		lastErr = err
		m.logger.Warn("connection attempt failed", "attempt", attempt, "max_attempts", maxAttempts, "error", err)
	}

	m.mu.Lock()
	if m.gen != gen || m.state != domain.StateConnecting {
		m.mu.Unlock()
		return ErrConnectAborted
	}
	m.state = domain.StateDisconnected
	m.mu.Unlock()
	m.announce(domain.StateConnecting, domain.StateDisconnected, lastErr)
	return fmt.Errorf("failed to connect to %s: %w", target, lastErr)
}

// current reports whether the connect loop gen still owns the connecting state.
func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen && m.state == domain.StateConnecting
}

func (m *Manager) dial(ctx context.Context) (domain.Conn, error) {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()

	dialCtx := ctx
	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}

	conn, err := m.transport.Dial(dialCtx, m.opts.Endpoint)
	if m.metrics != nil {
		result := "success"
		if err != nil {
			result = "failure"
		}
		m.metrics.ConnectAttempts.WithLabelValues(result).Inc()
	}
	return conn, err
}

func (m *Manager) established(conn domain.Conn, attempt int, gen uint64) error {
	m.mu.Lock()
	if m.gen != gen || m.state != domain.StateConnecting {
		// Disconnect or a newer Connect ran while the dial was in flight.
		m.mu.Unlock()
		_ = conn.Close()
		return ErrConnectAborted
	}
	m.conn = conn
	m.attempts = 0
	m.state = domain.StateConnected
	m.mu.Unlock()

	m.announce(domain.StateConnecting, domain.StateConnected, nil)
	m.logger.Info("Connected to "+m.opts.Endpoint.String(), "attempt", attempt)
	return nil
}

// Disconnect closes the live connection, if any, and sets the state to
// disconnected regardless of the previous state. It is idempotent.
func (m *Manager) Disconnect() error {
	m.logger.Info("Disconnecting...")

	m.mu.Lock()
	from := m.state
	conn := m.conn
	m.conn = nil
	m.state = domain.StateDisconnected
	m.stopped = true
	m.gen++
	m.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	m.announce(from, domain.StateDisconnected, nil)
	return err
}

// StartHealthCheck pings the live connection every interval until ctx is
// done. A failed ping drops the connection; with KeepAlive set, a dropped or
// never-established connection is redialed on the next tick unless
// Disconnect was called.
func (m *Manager) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if m.transport == nil {
		m.logger.Info("no transport configured, skipping health check")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("Starting connection health check", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping connection health check")
			return
		case <-ticker.C:
			m.checkHealth(ctx)
		}
	}
}

func (m *Manager) checkHealth(ctx context.Context) {
	m.mu.Lock()
	state, conn, stopped := m.state, m.conn, m.stopped
	m.mu.Unlock()

	switch state {
	case domain.StateConnected:
		pinger, ok := conn.(domain.Pinger)
		if !ok {
			return
		}
		pingCtx := ctx
		if m.opts.Timeout > 0 {
			var cancel context.CancelFunc
			pingCtx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
			defer cancel()
		}
		if err := pinger.Ping(pingCtx); err != nil {
			m.drop(conn, err)
		}
	case domain.StateDisconnected:
		if stopped || !m.opts.KeepAlive {
			return
		}
		err := m.connect(ctx, false)
		if errors.Is(err, ErrConnectAborted) || errors.Is(err, ErrConnectInProgress) {
			return
		}
		if err != nil {
			m.logger.Warn("reconnect failed", "error", err)
			return
		}
		if m.Status() == domain.StateConnected {
			m.logger.Info("Connection recovered")
		}
	}
}

func (m *Manager) drop(conn domain.Conn, cause error) {
	m.mu.Lock()
	if m.conn != conn || m.state != domain.StateConnected {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.mu.Unlock()

	_ = conn.Close()
	if m.transition(domain.StateConnected, domain.StateDisconnected, cause) {
		m.logger.Error("Connection lost", "error", cause)
	}
}

// transition moves from -> to if the current state is from.
func (m *Manager) transition(from, to domain.ConnectionState, cause error) bool {
	m.mu.Lock()
	if m.state != from {
		m.mu.Unlock()
		return false
	}
	m.state = to
	m.mu.Unlock()

	m.announce(from, to, cause)
	return true
}

func (m *Manager) announce(from, to domain.ConnectionState, cause error) {
	if from == to {
		return
	}
	if m.metrics != nil {
		m.metrics.ConnectionState.Set(float64(to))
	}
	m.logger.Debug("connection state changed", "from", from.String(), "to", to.String())
	if m.publisher == nil {
		return
	}

	change := domain.StatusChange{From: from, To: to, Endpoint: m.opts.Endpoint.String()}
	if cause != nil {
		change.Error = cause.Error()
	}
	if err := m.publisher.Emit(domain.EventNetworkStatus, change); err != nil {
		m.logger.Warn("status change handlers failed", "error", err)
	}
}
