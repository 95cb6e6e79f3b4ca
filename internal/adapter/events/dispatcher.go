// Package events implements a synchronous publish/subscribe dispatcher.
//
// Handlers for an event run on the emitting goroutine in registration
// order. A handler that returns an error or panics does not stop delivery
// to the handlers after it; every failure is collected and returned from
// Emit as a single multierr value.
package events

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/V4T54L/beacon/internal/adapter/metrics"
)

// ErrHandlerPanic wraps the value recovered from a panicking handler.
var ErrHandlerPanic = errors.New("event handler panicked")

// Handler reacts to an emitted event.
type Handler func(data any) error

// Subscription identifies one registered handler.
type Subscription struct {
	ID    uuid.UUID
	Event string
}

type entry struct {
	id uuid.UUID
	fn Handler
}

// Dispatcher routes named events to their handlers. The zero value is not
// usable; create one with NewDispatcher.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	metrics  *metrics.RuntimeMetrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records emits and handler failures.
func WithMetrics(m *metrics.RuntimeMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string][]entry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// On appends handler to the sequence for event. Registering the same
// handler twice makes it run twice.
func (d *Dispatcher) On(event string, handler Handler) Subscription {
	sub := Subscription{ID: uuid.New(), Event: event}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = append(d.handlers[event], entry{id: sub.ID, fn: handler})
	return sub
}

// Off removes a subscription. It reports whether the subscription existed.
func (d *Dispatcher) Off(sub Subscription) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.handlers[sub.Event]
	for i, e := range list {
		if e.id != sub.ID {
			continue
		}
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(d.handlers, sub.Event)
		} else {
			d.handlers[sub.Event] = next
		}
		return true
	}
	return false
}

// Count returns the number of handlers registered for event.
func (d *Dispatcher) Count(event string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[event])
}

// Emit delivers data to every handler registered for event. Handlers
// registered while Emit runs are not called until the next Emit.
func (d *Dispatcher) Emit(event string, data any) error {
	d.mu.RLock()
	list := d.handlers[event]
	d.mu.RUnlock()

	if len(list) == 0 {
		return nil
	}
	if d.metrics != nil {
		d.metrics.EventsEmitted.WithLabelValues(event).Inc()
	}

	var errs error
	for i, e := range list {
		if err := invoke(e.fn, data); err != nil {
			if d.metrics != nil {
				d.metrics.HandlerFailures.WithLabelValues(event).Inc()
			}
			errs = multierr.Append(errs, fmt.Errorf("handler %d for %q: %w", i, event, err))
		}
	}
	return errs
}

func invoke(fn Handler, data any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn(data)
}
