package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pscheid92/rtspoverlay/internal/platform/correlation"
)


// ParseLevel maps "debug", "info", "warn" and "error" to slog levels. Anything else is info.
func ParseLevel(level string) slog.Level {
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

// New builds a correlation-aware logger writing to w.
// format: "json" or "text" (defaults to "text")
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(correlation.NewHandler(handler))
}

// InitLogger makes a stdout logger the slog default.
func InitLogger(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}
