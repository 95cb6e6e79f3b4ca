package usecase

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/V4T54L/beacon/internal/adapter/cache"
	"github.com/V4T54L/beacon/internal/adapter/events"
	"github.com/V4T54L/beacon/internal/adapter/host"
	"github.com/V4T54L/beacon/internal/adapter/network"
	"github.com/V4T54L/beacon/internal/domain"
	"github.com/V4T54L/beacon/internal/pkg/config"
	"github.com/V4T54L/beacon/internal/pkg/logger"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestRuntimeFlow drives the runtime against a live HTTP endpoint through
// startup, a lost connection, recovery and teardown.
func TestRuntimeFlow(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	h, p, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(p)

	cfg := *config.Default()
	cfg.Protocol = "http"
	cfg.Domain = h
	cfg.Port = port
	cfg.UpdateEnabled = true
	cfg.Timeout = time.Second
	cfg.RetryAttempts = 0

	out := &syncBuffer{}
	log := logger.New("debug", out)
	bus := events.NewDispatcher()
	store := cache.NewMemory(nil)

	transport, err := network.NewTransport(cfg.Protocol, network.TransportOptions{
		MaxConnections: cfg.MaxConnections,
		KeepAlive:      cfg.KeepAlive,
		Compression:    cfg.Compression,
		Timeout:        cfg.Timeout,
	})
	if err != nil {
		t.Fatalf("failed to build transport: %v", err)
	}
	manager := network.NewManager(transport, network.Options{
		Endpoint:      cfg.Endpoint(),
		Timeout:       cfg.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  time.Millisecond,
		KeepAlive:     true,
	}, log.Slog(), bus, nil)

	env := host.New(log.Slog(), nil)
	rt := NewRuntime(cfg, RuntimeDeps{Logger: log, Host: env, Network: manager, Cache: store, Events: bus})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.On(domain.SignalReady, func(any) error { return rt.Init(ctx) })
	if err := env.Ready(); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	if manager.Status() != domain.StateConnected {
		t.Fatalf("expected connected after init, got %s", manager.Status())
	}
	if !strings.Contains(out.String(), "Target: "+srv.URL) {
		t.Errorf("expected target %s in log:\n%s", srv.URL, out.String())
	}

	env.Go(ctx, "health-check", func(ctx context.Context) error {
		manager.StartHealthCheck(ctx, 10*time.Millisecond)
		return nil
	})

	status.Store(http.StatusServiceUnavailable)
	waitFor(t, "connection loss", func() bool { return strings.Contains(out.String(), "Connection lost") })

	status.Store(http.StatusOK)
	waitFor(t, "recovery", func() bool { return strings.Contains(out.String(), "Connection recovered") })
	waitFor(t, "connected", func() bool { return manager.Status() == domain.StateConnected })

	if err := env.Teardown(); err != nil {
		t.Fatalf("teardown failed: %v", err)
	}
	cancel()
	env.Wait()

	if manager.Status() != domain.StateDisconnected {
		t.Errorf("expected disconnected after teardown, got %s", manager.Status())
	}
	v, ok, _ := store.Get(context.Background(), LastStatusKey)
	if !ok || v.(domain.StatusChange).To != domain.StateDisconnected {
		t.Errorf("expected cached disconnect, got %v", v)
	}
}
