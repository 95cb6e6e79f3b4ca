package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/V4T54L/beacon/internal/adapter/api/handler"
	"github.com/V4T54L/beacon/internal/adapter/metrics"
	"github.com/V4T54L/beacon/internal/domain"
)

type staticSource struct{}

func (staticSource) Status() domain.ConnectionState { return domain.StateDisconnected }
func (staticSource) Endpoint() domain.Endpoint {
	return domain.Endpoint{Protocol: "tcp", Host: "localhost", Port: 9000}
}
func (staticSource) ReconnectAttempts() int { return 0 }

func newTestRouter(token string) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.NewRuntimeMetrics(reg)
	m.ConnectionState.Set(0)

	return NewRouter(RouterDeps{
		Status:   handler.NewStatusHandler(staticSource{}, nil, "", "2.5.1", "test", logger),
		Gatherer: reg,
		Token:    token,
		Logger:   logger,
	})
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name           string
		token          string
		path           string
		authHeader     string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Health Is Public",
			token:          "secret",
			path:           "/health",
			expectedStatus: http.StatusOK,
			expectedBody:   `"ok"`,
		},
		{
			name:           "Status Without Token Configured",
			path:           "/status",
			expectedStatus: http.StatusOK,
			expectedBody:   `"state":"disconnected"`,
		},
		{
			name:           "Status Missing Bearer",
			token:          "secret",
			path:           "/status",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "bearer token required",
		},
		{
			name:           "Status Wrong Bearer",
			token:          "secret",
			path:           "/status",
			authHeader:     "Bearer nope",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "invalid bearer token",
		},
		{
			name:           "Status Valid Bearer",
			token:          "secret",
			path:           "/status",
			authHeader:     "Bearer secret",
			expectedStatus: http.StatusOK,
			expectedBody:   `"endpoint":"tcp://localhost:9000"`,
		},
		{
			name:           "Metrics",
			path:           "/metrics",
			expectedStatus: http.StatusOK,
			expectedBody:   "beacon_network_connection_state",
		},
		{
			name:           "Events Not Mounted Without Broker",
			path:           "/events",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.token)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
		})
	}
}
