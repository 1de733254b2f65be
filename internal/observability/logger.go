package observability

import (
	"io"
	"log/slog"

	"github.com/semgen/semgen/internal/config"
)

func NewLogger(cfg config.ObservabilityConfig, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	return slog.New(handler).With(slog.String("service", "semgen"))
}
