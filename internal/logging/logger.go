package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NewConsoleHandler builds the stdout handler: JSON by default, colored
// human-readable output when format is "text".
func NewConsoleHandler(w io.Writer, format, level string) slog.Handler {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "text") {
		return tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
}

// Setup installs the console handler as the default logger and returns it
// so it can later be combined with the database handler.
func Setup(format, level string) slog.Handler {
	handler := NewConsoleHandler(os.Stdout, format, level)
	slog.SetDefault(slog.New(handler))
	return handler
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
