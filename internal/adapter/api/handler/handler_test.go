package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/beacon/internal/adapter/events"
	"github.com/V4T54L/beacon/internal/domain"
	"github.com/V4T54L/beacon/internal/domain/mocks"
)

type fakeSource struct {
	state    domain.ConnectionState
	attempts int
}

func (f fakeSource) Status() domain.ConnectionState { return f.state }
func (f fakeSource) Endpoint() domain.Endpoint {
	return domain.Endpoint{Protocol: "https", Host: "new.example.com", Port: 8080}
}
func (f fakeSource) ReconnectAttempts() int { return f.attempts }

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	change := domain.StatusChange{From: domain.StateConnecting, To: domain.StateConnected, Endpoint: "https://new.example.com:8080"}
	// The shape the redis cache hands back after its JSON round trip.
	decoded := map[string]any{"from": "connecting", "to": "connected", "endpoint": "https://new.example.com:8080"}

	tests := []struct {
		name           string
		cache          *mocks.MockCache
		expectedStatus int
		expectedLast   *domain.StatusChange
	}{
		{
			name:           "No Cached Change",
			cache:          &mocks.MockCache{},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Cached Change",
			cache:          &mocks.MockCache{Data: map[string]any{"last": change}},
			expectedStatus: http.StatusOK,
			expectedLast:   &change,
		},
		{
			name:           "Cached Change Decoded From JSON",
			cache:          &mocks.MockCache{Data: map[string]any{"last": decoded}},
			expectedStatus: http.StatusOK,
			expectedLast:   &change,
		},
		{
			name:           "Cache Error",
			cache:          &mocks.MockCache{GetErr: errors.New("redis down")},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStatusHandler(fakeSource{state: domain.StateConnected, attempts: 2}, tt.cache, "last", "2.5.1", "production", logger)

			rr := httptest.NewRecorder()
			h.Status(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var body StatusResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, domain.StateConnected, body.State)
			assert.Equal(t, "https://new.example.com:8080", body.Endpoint)
			assert.Equal(t, 2, body.ReconnectAttempts)
			assert.Equal(t, tt.expectedLast, body.LastChange)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewStatusHandler(fakeSource{}, nil, "", "", "", logger)

	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestSSEBroker_ForwardsEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewSSEBroker(ctx, logger, 0)
	bus := events.NewDispatcher()
	broker.Forward(bus, domain.EventNetworkStatus)

	srv := httptest.NewServer(broker)
	defer srv.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return broker.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	change := domain.StatusChange{From: domain.StateDisconnected, To: domain.StateConnecting, Endpoint: "tcp://localhost:9000"}
	require.NoError(t, bus.Emit(domain.EventNetworkStatus, change))

	reader := bufio.NewReader(resp.Body)
	eventLine, _ := reader.ReadString('\n')
	dataLine, _ := reader.ReadString('\n')

	assert.Equal(t, "event: network.status\n", eventLine)
	assert.Equal(t, `data: {"from":"disconnected","to":"connecting","endpoint":"tcp://localhost:9000"}`+"\n", dataLine)
}

func TestSSEBroker_PublishRejectsUnmarshalable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewSSEBroker(ctx, logger, 0)
	assert.Error(t, broker.Publish("bad", make(chan int)))
}
