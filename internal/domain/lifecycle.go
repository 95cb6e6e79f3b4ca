package domain

import "fmt"

// Host lifecycle signals consumed by the runtime.
const (
	SignalReady                 = "ready"
	SignalResourceLoaded        = "resource-loaded"
	SignalBeforeTeardown        = "before-teardown"
	SignalUncaughtError         = "uncaught-error"
	SignalUnhandledAsyncFailure = "unhandled-async-failure"
)

// EventNetworkStatus carries a StatusChange each time the connection state moves.
const EventNetworkStatus = "network.status"

// ErrorReport describes a failure that escaped to the host boundary.
type ErrorReport struct {
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"lineno,omitempty"`
	Column  int    `json:"colno,omitempty"`
	Err     error  `json:"-"`
}

func (r ErrorReport) Error() string {
	if r.Source == "" {
		return r.Message
	}
	return fmt.Sprintf("%s (%s:%d)", r.Message, r.Source, r.Line)
}

func (r ErrorReport) Unwrap() error {
	return r.Err
}

// Fields flattens the report into the structured payload handed to the logger.
func (r ErrorReport) Fields() map[string]any {
	fields := map[string]any{
		"message": r.Message,
		"source":  r.Source,
		"lineno":  r.Line,
		"colno":   r.Column,
	}
	if r.Err != nil {
		fields["error"] = r.Err.Error()
	}
	return fields
}
