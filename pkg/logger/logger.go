// Package logger provides a small call-site API over log/slog used
// throughout the engine: InfoCF/WarnCF/ErrorCF/DebugCF each take a
// component name, a message, and a field map so every log line carries
// consistent structured context.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.RWMutex
	log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// SetLevel reconfigures the process-wide logger's minimum level. Valid
// values: "debug", "info", "warn", "error".
func SetLevel(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	mu.Lock()
	defer mu.Unlock()
	log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func attrs(component string, fields map[string]interface{}) []any {
	out := make([]any, 0, 2+2*len(fields))
	out = append(out, "component", component)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func DebugCF(component, message string, fields map[string]interface{}) {
	current().Debug(message, attrs(component, fields)...)
}

func InfoCF(component, message string, fields map[string]interface{}) {
	current().Info(message, attrs(component, fields)...)
}

func WarnCF(component, message string, fields map[string]interface{}) {
	current().Warn(message, attrs(component, fields)...)
}

func ErrorCF(component, message string, fields map[string]interface{}) {
	current().Error(message, attrs(component, fields)...)
}
