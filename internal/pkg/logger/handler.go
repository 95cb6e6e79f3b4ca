package logger

import (
	"context"
	"log/slog"
	"time"
)

// Slog returns a *slog.Logger whose records go through l. Attributes are
// collected into a map payload; groups become dotted key prefixes.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(&handler{l: l})
}

type handler struct {
	l      *Logger
	attrs  map[string]any
	prefix string
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.l.Enabled(fromSlog(level))
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.prefix, a)
		return true
	})

	var data any
	if len(fields) > 0 {
		data = fields
	}
	h.l.write(fromSlog(r.Level), r.Message, data)
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		addAttr(next.attrs, h.prefix, a)
	}
	return next
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func (h *handler) clone() *handler {
	attrs := make(map[string]any, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	return &handler{l: h.l, attrs: attrs, prefix: h.prefix}
}

func addAttr(fields map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		nested := prefix
		if a.Key != "" {
			nested = prefix + a.Key + "."
		}
		for _, ga := range group {
			addAttr(fields, nested, ga)
		}
		return
	}

	switch v := a.Value.Any().(type) {
	case error:
		fields[prefix+a.Key] = v.Error()
	case time.Duration:
		fields[prefix+a.Key] = v.String()
	default:
		fields[prefix+a.Key] = v
	}
}

func fromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}
