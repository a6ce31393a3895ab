// Package logger provides the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the process logger from LOG_LEVEL and LOG_FORMAT, installs
// it as the slog default, and returns it. LOG_FORMAT=json selects the JSON
// handler used in production. With otelEnabled set, records are additionally
// exported through the OTLP log bridge so they carry the trace context of
// the request that produced them.
func Init(otelEnabled bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	if otelEnabled {
		handler = NewMultiHandler("news-enricher", handler)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
