package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// newLogger builds the run logger from the persistent logging flags.
// Logs go to stderr so stdout stays clean for artifacts and tables.
func newLogger(cmd *cobra.Command, stderr io.Writer) *slog.Logger {
	levelStr, _ := cmd.Root().PersistentFlags().GetString("log-level")
	format, _ := cmd.Root().PersistentFlags().GetString("log-format")

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(stderr, opts)
	} else {
		handler = slog.NewTextHandler(stderr, opts)
	}
	return slog.New(handler)
}
