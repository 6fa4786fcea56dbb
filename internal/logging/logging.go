// Package logging builds the slog logger shared by every component of a run.
package logging

import (
	"io"
	"log/slog"
)

// Options selects the level and encoding of the logger
type Options struct {
	// Debug enables debug-level logging; the default level is warn
	Debug bool
	// Silent discards every record
	Silent bool
	// JSON emits JSON records instead of key=value text
	JSON bool
}

// New returns a logger writing to w. Diagnostics such as skipped files are
// logged at warn level, so they reach w unless Silent is set.
func New(w io.Writer, opts Options) *slog.Logger {
	if opts.Silent || w == nil {
		return slog.New(slog.DiscardHandler)
	}

	level := slog.LevelWarn
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}
