package domain

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
)

// ConnectionState is the status of the managed network connection.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads and log lines.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *ConnectionState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "disconnected":
		*s = StateDisconnected
	case "connecting":
		*s = StateConnecting
	case "connected":
		*s = StateConnected
	default:
		return fmt.Errorf("unknown connection state %q", text)
	}
	return nil
}

// Endpoint identifies the remote side of the managed connection.
type Endpoint struct {
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
}

// Address returns host:port, bracketing IPv6 literals.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String renders the endpoint as protocol://host:port.
func (e Endpoint) String() string {
	return e.Protocol + "://" + e.Address()
}

// StatusChange is published on EventNetworkStatus whenever the connection
// state moves.
type StatusChange struct {
	From     ConnectionState `json:"from"`
	To       ConnectionState `json:"to"`
	Endpoint string          `json:"endpoint"`
	Error    string          `json:"error,omitempty"`
}

// AsStatusChange recovers a StatusChange from a cached value. Caches that
// serialize values hand back the decoded JSON object instead of the struct.
func AsStatusChange(v any) (StatusChange, bool) {
	switch c := v.(type) {
	case StatusChange:
		return c, true
	case *StatusChange:
		if c == nil {
			return StatusChange{}, false
		}
		return *c, true
	case map[string]any:
		raw, err := json.Marshal(c)
		if err != nil {
			return StatusChange{}, false
		}
		var change StatusChange
		if err := json.Unmarshal(raw, &change); err != nil {
			return StatusChange{}, false
		}
		return change, true
	default:
		return StatusChange{}, false
	}
}
