package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/V4T54L/beacon/internal/adapter/events"
)

// SSEMessage is a single event pushed to stream clients.
type SSEMessage struct {
	Event string
	Data  []byte
}

// SSEBroker manages SSE client connections and broadcasts dispatcher events.
type SSEBroker struct {
	logger    *slog.Logger
	clients   map[chan SSEMessage]struct{}
	mu        sync.RWMutex
	messages  chan SSEMessage
	heartbeat time.Duration
}

// NewSSEBroker creates a new SSEBroker and starts its processing loop. A
// comment line is written to every client each heartbeat to keep idle
// proxies from closing the stream.
func NewSSEBroker(ctx context.Context, logger *slog.Logger, heartbeat time.Duration) *SSEBroker {
	broker := &SSEBroker{
		logger:    logger,
		clients:   make(map[chan SSEMessage]struct{}),
		messages:  make(chan SSEMessage, 256),
		heartbeat: heartbeat,
	}
	go broker.run(ctx)
	return broker
}

// Forward relays every emission of event on bus to stream clients.
func (b *SSEBroker) Forward(bus *events.Dispatcher, event string) events.Subscription {
	return bus.On(event, func(data any) error {
		return b.Publish(event, data)
	})
}

// Publish queues data for broadcast under the given event name. It never
// blocks; when the queue is full the message is dropped.
func (b *SSEBroker) Publish(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE payload: %w", err)
	}
	select {
	case b.messages <- SSEMessage{Event: event, Data: payload}:
	default:
		b.logger.Warn("SSE message queue is full, dropping event", "event", event)
	}
	return nil
}

// Clients returns the number of connected stream clients.
func (b *SSEBroker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// ServeHTTP handles new client connections for the SSE stream.
func (b *SSEBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messageChan := make(chan SSEMessage, 16)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			if msg.Event == "" {
				fmt.Fprint(w, ": ping\n\n")
			} else {
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			}
			flusher.Flush()
		}
	}
}

func (b *SSEBroker) addClient(client chan SSEMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("SSE client connected")
}

func (b *SSEBroker) removeClient(client chan SSEMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Info("SSE client disconnected")
	}
}

func (b *SSEBroker) broadcast(msg SSEMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Slow client; skip rather than block the others.
		}
	}
}

func (b *SSEBroker) run(ctx context.Context) {
	var tick <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.messages:
			b.broadcast(msg)
		case <-tick:
			b.broadcast(SSEMessage{})
		}
	}
}
