package utils

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Stopwatch measures labelled spans and logs their duration at debug level.
type Stopwatch struct {
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	starts map[string]time.Time
}

func NewStopwatch(logger *slog.Logger) *Stopwatch {
	return &Stopwatch{
		logger: logger,
		now:    time.Now,
		starts: make(map[string]time.Time),
	}
}

// Start records the start of label, restarting it if already running.
func (s *Stopwatch) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts[label] = s.now()
}

// End logs the time since Start(label) and forgets the label. Ending a
// label that was never started does nothing and returns false.
func (s *Stopwatch) End(label string) (time.Duration, bool) {
	s.mu.Lock()
	start, ok := s.starts[label]
	delete(s.starts, label)
	s.mu.Unlock()
	if !ok {
		return 0, false
	}

	elapsed := s.now().Sub(start)
	ms := float64(elapsed) / float64(time.Millisecond)
	s.logger.Debug(fmt.Sprintf("[Performance] %s: %.2fms", label, ms))
	return elapsed, true
}
