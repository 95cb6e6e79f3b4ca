// Package logger implements the leveled diagnostic sink shared by every
// runtime component, plus a log/slog bridge so infrastructure code can keep
// using *slog.Logger while honouring the same level and line format.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
)

// Level is the ordinal severity of a record. Records are emitted only when
// their level is at or above the logger's current level.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a level name (case-insensitive) to a Level.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Logger filters records by level and writes one formatted line per record.
// It is safe for concurrent use.
type Logger struct {
	level atomic.Int32
	clock clock.Clock

	mu  sync.Mutex
	out io.Writer
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock replaces the wall clock used for record timestamps.
func WithClock(c clock.Clock) Option {
	return func(l *Logger) {
		l.clock = c
	}
}

// New creates a Logger writing to w at the named level. Unknown level names
// fall back to info; a nil writer means stdout.
func New(level string, w io.Writer, opts ...Option) *Logger {
	if w == nil {
		w = os.Stdout
	}
	l := &Logger{
		clock: clock.New(),
		out:   w,
	}
	lvl, _ := ParseLevel(level)
	l.level.Store(int32(lvl))
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Level returns the current threshold.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// SetLevel changes the threshold for all subsequent calls.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Enabled reports whether a record at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.Level()
}

// Log writes msg at level. At most one payload is expected; several values
// are rendered together as a list.
func (l *Logger) Log(level Level, msg string, data ...any) {
	if !l.Enabled(level) {
		return
	}
	l.write(level, msg, payload(data))
}

func (l *Logger) Debug(msg string, data ...any) { l.Log(LevelDebug, msg, data...) }
func (l *Logger) Info(msg string, data ...any)  { l.Log(LevelInfo, msg, data...) }
func (l *Logger) Warn(msg string, data ...any)  { l.Log(LevelWarn, msg, data...) }
func (l *Logger) Error(msg string, data ...any) { l.Log(LevelError, msg, data...) }

func (l *Logger) write(level Level, msg string, data any) {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(l.clock.Now().UTC().Format(timestampLayout))
	b.WriteString("] [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	if data != nil {
		b.WriteByte(' ')
		b.WriteString(render(data))
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

func payload(data []any) any {
	switch len(data) {
	case 0:
		return nil
	case 1:
		return data[0]
	default:
		return data
	}
}

func render(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(out)
}
