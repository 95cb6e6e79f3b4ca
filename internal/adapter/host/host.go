// Package host models the environment the runtime is embedded in: it
// delivers lifecycle signals and turns failures in background work into
// uncaught-error and unhandled-async-failure signals.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"github.com/V4T54L/beacon/internal/adapter/events"
	"github.com/V4T54L/beacon/internal/adapter/metrics"
	"github.com/V4T54L/beacon/internal/domain"
)

// Environment dispatches host lifecycle signals to registered handlers.
type Environment struct {
	bus     *events.Dispatcher
	logger  *slog.Logger
	metrics *metrics.RuntimeMetrics
	wg      sync.WaitGroup
}

// New creates an Environment. m may be nil.
func New(logger *slog.Logger, m *metrics.RuntimeMetrics) *Environment {
	return &Environment{
		bus:     events.NewDispatcher(events.WithMetrics(m)),
		logger:  logger.With("component", "host"),
		metrics: m,
	}
}

// On registers handler for a lifecycle signal.
func (e *Environment) On(signal string, handler events.Handler) events.Subscription {
	return e.bus.On(signal, handler)
}

// Ready emits the ready signal.
func (e *Environment) Ready() error {
	return e.bus.Emit(domain.SignalReady, nil)
}

// Loaded emits the resource-loaded signal.
func (e *Environment) Loaded() error {
	return e.bus.Emit(domain.SignalResourceLoaded, nil)
}

// Teardown emits the before-teardown signal.
func (e *Environment) Teardown() error {
	return e.bus.Emit(domain.SignalBeforeTeardown, nil)
}

// ReportError emits an uncaught-error signal. With no handler registered the
// report is logged directly so it is never lost.
func (e *Environment) ReportError(report domain.ErrorReport) {
	if e.metrics != nil {
		e.metrics.UncaughtErrors.WithLabelValues("panic").Inc()
	}
	e.deliver(domain.SignalUncaughtError, report, report)
}

// ReportFailure emits an unhandled-async-failure signal carrying reason.
func (e *Environment) ReportFailure(reason error) {
	if e.metrics != nil {
		e.metrics.UncaughtErrors.WithLabelValues("error").Inc()
	}
	e.deliver(domain.SignalUnhandledAsyncFailure, reason, reason)
}

func (e *Environment) deliver(signal string, data any, cause error) {
	if e.bus.Count(signal) == 0 {
		e.logger.Error("no handler registered for "+signal, "error", cause)
		return
	}
	if err := e.bus.Emit(signal, data); err != nil {
		e.logger.Error("handlers failed for "+signal, "error", err)
	}
}

// Go runs fn on a new goroutine tracked by Wait. A panic becomes an
// uncaught-error signal; a returned error other than context cancellation
// becomes an unhandled-async-failure signal.
func (e *Environment) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.ReportError(panicReport(name, r))
			}
		}()

		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.ReportFailure(fmt.Errorf("%s: %w", name, err))
		}
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (e *Environment) Wait() {
	e.wg.Wait()
}

// NotifyContext returns a context cancelled on SIGINT or SIGTERM.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func panicReport(name string, r any) domain.ErrorReport {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}
	report := domain.ErrorReport{
		Message: fmt.Sprintf("%s panicked: %v", name, r),
		Err:     err,
	}

	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	panicking := false
	for {
		frame, more := frames.Next()
		if frame.Function == "runtime.gopanic" {
			panicking = true
		} else if panicking && !strings.HasPrefix(frame.Function, "runtime.") {
			report.Source = frame.File
			report.Line = frame.Line
			break
		}
		if !more {
			break
		}
	}
	return report
}
