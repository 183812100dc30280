package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger writes JSON to stdout. level ("debug", "info", "warn", "error")
// overrides the env default: debug in dev, info elsewhere.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(env, level),
		AddSource: env != "dev",
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}

	return slog.New(NewTraceHandler(slog.NewJSONHandler(w, opts)))
}

func parseLevel(env, level string) slog.Level {
	var l slog.Level
	if level != "" && l.UnmarshalText([]byte(strings.ToUpper(level))) == nil {
		return l
	}
	if env == "dev" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
