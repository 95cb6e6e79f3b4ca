package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/V4T54L/beacon/internal/domain"
)

// StatusSource is the read side of the connection manager.
type StatusSource interface {
	Status() domain.ConnectionState
	Endpoint() domain.Endpoint
	ReconnectAttempts() int
}

// StatusResponse is the body returned by GET /status.
type StatusResponse struct {
	State             domain.ConnectionState `json:"state"`
	Endpoint          string                 `json:"endpoint"`
	ReconnectAttempts int                    `json:"reconnect_attempts"`
	Version           string                 `json:"version"`
	Environment       string                 `json:"environment"`
	LastChange        *domain.StatusChange   `json:"last_change,omitempty"`
}

// StatusHandler reports liveness and connection state.
type StatusHandler struct {
	source      StatusSource
	cache       domain.Cache
	lastKey     string
	version     string
	environment string
	logger      *slog.Logger
}

// NewStatusHandler creates a new StatusHandler. The most recent status change
// is looked up in cache under lastKey; cache may be nil.
func NewStatusHandler(source StatusSource, cache domain.Cache, lastKey, version, environment string, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		source:      source,
		cache:       cache,
		lastKey:     lastKey,
		version:     version,
		environment: environment,
		logger:      logger,
	}
}

// HealthCheck is a simple health check endpoint.
func (h *StatusHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		State:             h.source.Status(),
		Endpoint:          h.source.Endpoint().String(),
		ReconnectAttempts: h.source.ReconnectAttempts(),
		Version:           h.version,
		Environment:       h.environment,
	}

	if h.cache != nil {
		v, ok, err := h.cache.Get(r.Context(), h.lastKey)
		if err != nil {
			h.logger.Error("failed to read last status change", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if change, isChange := domain.AsStatusChange(v); ok && isChange {
			resp.LastChange = &change
		}
	}

	h.respondWithJSON(w, http.StatusOK, resp)
}

func (h *StatusHandler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
