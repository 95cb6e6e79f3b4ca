package host

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/beacon/internal/domain"
	"github.com/V4T54L/beacon/internal/pkg/logger"
)

func newEnv() (*Environment, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(logger.New("debug", buf).Slog(), nil), buf
}

func TestEnvironment_LifecycleSignals(t *testing.T) {
	env, _ := newEnv()
	var got []string
	for _, sig := range []string{domain.SignalReady, domain.SignalResourceLoaded, domain.SignalBeforeTeardown} {
		sig := sig
		env.On(sig, func(any) error {
			got = append(got, sig)
			return nil
		})
	}

	require.NoError(t, env.Ready())
	require.NoError(t, env.Loaded())
	require.NoError(t, env.Teardown())

	assert.Equal(t, []string{"ready", "resource-loaded", "before-teardown"}, got)
}

func TestEnvironment_GoPanic(t *testing.T) {
	env, _ := newEnv()
	reports := make(chan domain.ErrorReport, 1)
	env.On(domain.SignalUncaughtError, func(data any) error {
		reports <- data.(domain.ErrorReport)
		return nil
	})

	env.Go(context.Background(), "worker", func(context.Context) error {
		panic("kaboom")
	})
	env.Wait()

	report := <-reports
	assert.Contains(t, report.Message, "worker panicked: kaboom")
	assert.True(t, strings.HasSuffix(report.Source, "host_test.go"), "source was %q", report.Source)
	assert.NotZero(t, report.Line)
	assert.EqualError(t, report.Err, "kaboom")
}

func TestEnvironment_GoFailure(t *testing.T) {
	env, _ := newEnv()
	var reasons []error
	env.On(domain.SignalUnhandledAsyncFailure, func(data any) error {
		reasons = append(reasons, data.(error))
		return nil
	})

	boom := errors.New("boom")
	env.Go(context.Background(), "sync", func(context.Context) error { return boom })
	env.Wait()
	env.Go(context.Background(), "cancelled", func(context.Context) error { return context.Canceled })
	env.Wait()

	require.Len(t, reasons, 1)
	assert.ErrorIs(t, reasons[0], boom)
	assert.Contains(t, reasons[0].Error(), "sync: boom")
}

func TestEnvironment_UnhandledWithoutSubscribers(t *testing.T) {
	env, buf := newEnv()

	env.ReportFailure(errors.New("nobody listening"))

	assert.Contains(t, buf.String(), "[ERROR] no handler registered for unhandled-async-failure")
	assert.Contains(t, buf.String(), "nobody listening")
}
