package logging

import (
	"log/slog"
	"slices"
	"time"
)

// Attribute constructors keep call sites free of a direct slog import.

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Strings(key string, values []string) slog.Attr { return slog.Any(key, values) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Float64(key string, value float64) slog.Attr { return slog.Float64(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Error records err under "error". A nil error is logged as "<nil>".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func toArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return args
}

// NewNop returns a logger that drops every record.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger yields a
// tagged no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

// warnDefaults fill the operator-facing fields a warning must carry.
var warnDefaults = []slog.Attr{
	slog.String(FieldErrorHint, "rerun with --log-level debug for request details"),
	slog.String(FieldImpact, "affected rows are reported with empty or error cells"),
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Caller-supplied values win over the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	has := func(key string) bool {
		return slices.ContainsFunc(attrs, func(a slog.Attr) bool { return a.Key == key })
	}
	if !has(FieldEventType) {
		attrs = append(attrs, slog.String(FieldEventType, eventType))
	}
	for _, def := range warnDefaults {
		if !has(def.Key) {
			attrs = append(attrs, def)
		}
	}
	logger.Warn(msg, toArgs(attrs)...)
}
