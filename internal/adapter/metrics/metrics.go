package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RuntimeMetrics holds all Prometheus metrics for the runtime.
type RuntimeMetrics struct {
	EventsEmitted   *prometheus.CounterVec
	HandlerFailures *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	ConnectionState prometheus.Gauge
	ConnectAttempts *prometheus.CounterVec
	UncaughtErrors  *prometheus.CounterVec
}

// NewRuntimeMetrics initializes the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them through promhttp.Handler.
func NewRuntimeMetrics(reg prometheus.Registerer) *RuntimeMetrics {
	factory := promauto.With(reg)
	return &RuntimeMetrics{
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Total number of events delivered to at least one handler.",
		}, []string{"event"}),
		HandlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "events",
			Name:      "handler_failures_total",
			Help:      "Total number of handler invocations that returned an error or panicked.",
		}, []string{"event"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache lookups that found a value.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache lookups that found nothing.",
		}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "beacon",
			Subsystem: "network",
			Name:      "connection_state",
			Help:      "Current connection state (0 disconnected, 1 connecting, 2 connected).",
		}),
		ConnectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "network",
			Name:      "connect_attempts_total",
			Help:      "Total number of transport dial attempts by result.",
		}, []string{"result"}), // result: success, failure
		UncaughtErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "host",
			Name:      "uncaught_errors_total",
			Help:      "Total number of failures that reached the host boundary.",
		}, []string{"kind"}), // kind: panic, error
	}
}
