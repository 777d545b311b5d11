package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON slog logger on stdout configured at the provided level.
// If the level string is invalid it defaults to info.
func New(level string, attrs ...slog.Attr) *slog.Logger {
	return NewWithWriter(os.Stdout, level, attrs...)
}

// NewWithWriter is New writing to w. attrs are attached to every record.
func NewWithWriter(w io.Writer, level string, attrs ...slog.Attr) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
