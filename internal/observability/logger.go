package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide JSON logger. The trace handler wrapper
// stamps trace/span ids onto records when a span is active.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler))
}
