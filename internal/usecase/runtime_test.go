package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/V4T54L/beacon/internal/adapter/cache"
	"github.com/V4T54L/beacon/internal/adapter/events"
	"github.com/V4T54L/beacon/internal/adapter/host"
	"github.com/V4T54L/beacon/internal/adapter/network"
	"github.com/V4T54L/beacon/internal/domain"
	"github.com/V4T54L/beacon/internal/domain/mocks"
	"github.com/V4T54L/beacon/internal/pkg/config"
	"github.com/V4T54L/beacon/internal/pkg/logger"
)

type fixture struct {
	rt      *Runtime
	env     *host.Environment
	manager *network.Manager
	cache   *cache.Memory
	buf     *bytes.Buffer
}

func newFixture(t *testing.T, cfg config.Config, transport domain.Transport) *fixture {
	t.Helper()
	buf := &bytes.Buffer{}
	log := logger.New("debug", buf)
	bus := events.NewDispatcher()
	env := host.New(log.Slog(), nil)
	mgr := network.NewManager(transport, network.Options{
		Endpoint:      cfg.Endpoint(),
		Timeout:       cfg.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  time.Millisecond,
	}, log.Slog(), bus, nil)
	mem := cache.NewMemory(nil)

	rt := NewRuntime(cfg, RuntimeDeps{
		Logger:  log,
		Host:    env,
		Network: mgr,
		Cache:   mem,
		Events:  bus,
	})
	return &fixture{rt: rt, env: env, manager: mgr, cache: mem, buf: buf}
}

func (f *fixture) lines(level string) []string {
	var out []string
	for _, line := range strings.Split(f.buf.String(), "\n") {
		if strings.Contains(line, "] ["+level+"] ") {
			out = append(out, line)
		}
	}
	return out
}

func TestRuntime_Init_UpdateDisabled(t *testing.T) {
	cfg := *config.Default()
	f := newFixture(t, cfg, nil)

	if err := f.rt.Init(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	warns := f.lines("WARN")
	if len(warns) != 1 || !strings.Contains(warns[0], "Update mechanism is disabled") {
		t.Errorf("expected exactly one update-disabled warning, got %q", warns)
	}
	if strings.Contains(f.buf.String(), "Target:") {
		t.Error("expected no Target log line when updates are disabled")
	}
	if !strings.Contains(f.buf.String(), "Attempting to connect to https://new.example.com:8080") {
		t.Error("expected connect intent to be logged")
	}
	if f.manager.Status() != domain.StateDisconnected {
		t.Errorf("expected stub connect to leave status disconnected, got %s", f.manager.Status())
	}
}

func TestRuntime_Init_UpdateEnabled(t *testing.T) {
	cfg := *config.Default()
	cfg.UpdateEnabled = true
	cfg.Domain = "192.168.80.227"
	f := newFixture(t, cfg, nil)

	if err := f.rt.Init(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	found := false
	for _, line := range f.lines("INFO") {
		if strings.Contains(line, "Target: https://192.168.80.227:8080") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected info log with target endpoint, got:\n%s", f.buf.String())
	}
	if len(f.lines("WARN")) != 0 {
		t.Errorf("expected no warnings, got %q", f.lines("WARN"))
	}
}

func TestRuntime_Init_RedactsConfig(t *testing.T) {
	cfg := *config.Default()
	cfg.AdminToken = "s3cret"
	f := newFixture(t, cfg, nil)

	_ = f.rt.Init(context.Background())

	if strings.Contains(f.buf.String(), "s3cret") {
		t.Error("expected admin token to be redacted from the configuration log")
	}
	if !strings.Contains(f.buf.String(), "Configuration loaded:") {
		t.Error("expected configuration snapshot to be logged")
	}
}

func TestRuntime_Init_Twice(t *testing.T) {
	f := newFixture(t, *config.Default(), nil)

	_ = f.rt.Init(context.Background())
	if err := f.rt.Init(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestRuntime_Lifecycle(t *testing.T) {
	transport := &mocks.MockTransport{}
	f := newFixture(t, *config.Default(), transport)

	if err := f.rt.Init(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.manager.Status() != domain.StateConnected {
		t.Fatalf("expected connected, got %s", f.manager.Status())
	}

	if err := f.env.Loaded(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(f.buf.String(), "Resources loaded") {
		t.Error("expected resource-loaded signal to be logged")
	}

	if err := f.env.Teardown(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.manager.Status() != domain.StateDisconnected {
		t.Errorf("expected teardown to disconnect, got %s", f.manager.Status())
	}
	if !strings.Contains(f.buf.String(), "Application shutting down...") {
		t.Error("expected shutdown message")
	}
	if transport.Conn.CloseCount() != 1 {
		t.Errorf("expected connection to be closed once, got %d", transport.Conn.CloseCount())
	}

	v, ok, _ := f.cache.Get(context.Background(), LastStatusKey)
	if !ok {
		t.Fatal("expected last status change to be cached")
	}
	if change := v.(domain.StatusChange); change.To != domain.StateDisconnected {
		t.Errorf("expected last cached change to be a disconnect, got %+v", change)
	}
}

func TestRuntime_ConnectFailureIsLogged(t *testing.T) {
	cfg := *config.Default()
	cfg.RetryAttempts = 0
	transport := &mocks.MockTransport{DialErrs: []error{errors.New("refused")}}
	f := newFixture(t, cfg, transport)

	if err := f.rt.Init(context.Background()); err != nil {
		t.Fatalf("expected init to succeed despite connect failure, got %v", err)
	}
	errs := f.lines("ERROR")
	if len(errs) != 1 || !strings.Contains(errs[0], "Initial connection failed") {
		t.Errorf("expected one connect failure error, got %q", errs)
	}
}

func TestRuntime_ErrorForwarding(t *testing.T) {
	f := newFixture(t, *config.Default(), nil)
	_ = f.rt.Init(context.Background())

	f.env.Go(context.Background(), "updater", func(context.Context) error {
		panic("nil map write")
	})
	f.env.Wait()
	f.env.ReportFailure(errors.New("promise rejected"))

	errs := f.lines("ERROR")
	if len(errs) != 2 {
		t.Fatalf("expected 2 error lines, got %q", errs)
	}
	if !strings.Contains(errs[0], "Global error caught:") || !strings.Contains(errs[0], `"message":"updater panicked: nil map write"`) {
		t.Errorf("unexpected uncaught error line: %s", errs[0])
	}
	if !strings.Contains(errs[0], `"lineno":`) || !strings.Contains(errs[0], "runtime_test.go") {
		t.Errorf("expected source location in uncaught error line: %s", errs[0])
	}
	if !strings.Contains(errs[1], "Unhandled async failure: promise rejected") {
		t.Errorf("unexpected async failure line: %s", errs[1])
	}
}

func TestRuntime_Exports(t *testing.T) {
	f := newFixture(t, *config.Default(), nil)
	exports := f.rt.Exports()

	for _, key := range []string{"config", "utils", "network", "storage", "logger", "EventEmitter"} {
		if _, ok := exports[key]; !ok {
			t.Errorf("expected export %q", key)
		}
	}
	ctor, ok := exports["EventEmitter"].(func(...events.Option) *events.Dispatcher)
	if !ok {
		t.Fatalf("expected EventEmitter to be a dispatcher constructor, got %T", exports["EventEmitter"])
	}
	if ctor() == nil {
		t.Error("expected constructor to build a dispatcher")
	}
}
