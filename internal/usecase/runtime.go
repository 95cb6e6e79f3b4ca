package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/V4T54L/beacon/internal/adapter/events"
	"github.com/V4T54L/beacon/internal/adapter/redact"
	"github.com/V4T54L/beacon/internal/domain"
	"github.com/V4T54L/beacon/internal/pkg/config"
	"github.com/V4T54L/beacon/internal/pkg/logger"
	"github.com/V4T54L/beacon/internal/pkg/utils"
)

// LastStatusKey is the cache key holding the most recent connection StatusChange.
const LastStatusKey = "network.last_status"

// ErrAlreadyInitialized is returned by a second call to Init.
var ErrAlreadyInitialized = errors.New("runtime already initialized")

// Host is the environment the runtime registers its lifecycle handlers with.
type Host interface {
	On(signal string, handler events.Handler) events.Subscription
}

// Network is the connection manager as seen by the runtime.
type Network interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Status() domain.ConnectionState
}

// RuntimeDeps are the collaborators a Runtime is composed from.
type RuntimeDeps struct {
	Logger   *logger.Logger
	Host     Host
	Network  Network
	Cache    domain.Cache
	Events   *events.Dispatcher
	Redactor *redact.Redactor // optional; defaults to cfg.RedactFields
}

// Runtime sequences application startup and shutdown.
type Runtime struct {
	cfg       config.Config
	log       *logger.Logger
	slog      *slog.Logger
	host      Host
	network   Network
	cache     domain.Cache
	events    *events.Dispatcher
	redactor  *redact.Redactor
	stopwatch *utils.Stopwatch

	mu          sync.Mutex
	initialized bool
}

// NewRuntime creates a Runtime over an immutable configuration snapshot.
func NewRuntime(cfg config.Config, deps RuntimeDeps) *Runtime {
	s := deps.Logger.Slog().With("component", "runtime")
	redactor := deps.Redactor
	if redactor == nil {
		redactor = redact.NewRedactor(cfg.RedactFields, s)
	}
	bus := deps.Events
	if bus == nil {
		bus = events.NewDispatcher()
	}
	return &Runtime{
		cfg:       cfg,
		log:       deps.Logger,
		slog:      s,
		host:      deps.Host,
		network:   deps.Network,
		cache:     deps.Cache,
		events:    bus,
		redactor:  redactor,
		stopwatch: utils.NewStopwatch(s),
	}
}

// Init logs the configuration, reports whether the update mechanism is
// enabled, connects, and registers the lifecycle and error handlers with the
// host. A failed connection is logged, not returned.
func (r *Runtime) Init(ctx context.Context) error {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return ErrAlreadyInitialized
	}
	r.initialized = true
	r.mu.Unlock()

	r.stopwatch.Start("init")
	defer r.stopwatch.End("init")

	r.log.Info("Application starting...")
	r.log.Info("Configuration loaded:", r.redactor.Redact(r.cfg.Fields()))

	if r.cfg.UpdateEnabled {
		r.log.Info("Update mechanism is enabled")
		r.log.Info("Target: " + r.cfg.Endpoint().String())
	} else {
		r.log.Warn("Update mechanism is disabled")
	}

	r.events.On(domain.EventNetworkStatus, r.rememberStatus)

	if err := r.network.Connect(ctx); err != nil {
		r.log.Error("Initial connection failed", err)
	}

	r.host.On(domain.SignalResourceLoaded, func(any) error {
		r.log.Info("Resources loaded")
		return nil
	})
	r.host.On(domain.SignalBeforeTeardown, func(any) error {
		return r.Shutdown()
	})
	r.host.On(domain.SignalUncaughtError, func(data any) error {
		if report, ok := data.(domain.ErrorReport); ok {
			r.log.Error("Global error caught:", report.Fields())
		} else {
			r.log.Error("Global error caught:", data)
		}
		return nil
	})
	r.host.On(domain.SignalUnhandledAsyncFailure, func(reason any) error {
		r.log.Error("Unhandled async failure:", reason)
		return nil
	})

	return nil
}

// Shutdown disconnects the network manager. It runs on before-teardown and
// may also be called directly.
func (r *Runtime) Shutdown() error {
	err := r.network.Disconnect()
	r.log.Info("Application shutting down...")
	return err
}

func (r *Runtime) rememberStatus(data any) error {
	change, ok := data.(domain.StatusChange)
	if !ok {
		return nil
	}
	// Handlers run inside Emit with no caller context.
	return r.cache.Set(context.Background(), LastStatusKey, change)
}

// Events returns the application event dispatcher.
func (r *Runtime) Events() *events.Dispatcher {
	return r.events
}

// Config returns the configuration snapshot.
func (r *Runtime) Config() config.Config {
	return r.cfg
}

// Exports returns the component surface offered to an embedding host.
func (r *Runtime) Exports() map[string]any {
	return map[string]any{
		"config":       r.cfg,
		"utils":        utils.Kit(),
		"network":      r.network,
		"storage":      r.cache,
		"logger":       r.log,
		"EventEmitter": events.NewDispatcher,
	}
}
