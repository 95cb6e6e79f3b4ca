package redact

import (
	"log/slog"
	"strings"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks sensitive values in structured log payloads.
type Redactor struct {
	fieldsToRedact map[string]struct{} // Use a map for O(1) lookups
	logger         *slog.Logger
}

// NewRedactor creates a new Redactor instance with a given set of fields to redact.
// Field names are matched case-insensitively; blank names are ignored.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// Redact returns a copy of fields with sensitive, non-empty values replaced
// by RedactedPlaceholder. Nested maps are redacted recursively. The input
// map is never modified.
func (r *Redactor) Redact(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	redacted := 0
	for k, v := range fields {
		if _, ok := r.fieldsToRedact[strings.ToLower(k)]; ok && !isEmpty(v) {
			out[k] = RedactedPlaceholder
			redacted++
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = r.Redact(nested)
			continue
		}
		out[k] = v
	}
	if redacted > 0 {
		r.logger.Debug("redacted sensitive fields", "count", redacted)
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}
