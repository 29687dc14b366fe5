package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// See https://github.com/golang/go/issues/62005 for details about why
// we have this. When that issue is closed, we should be able to use
// slog's built in discard handler.
type discardHandler struct {
	slog.JSONHandler
}

func (d *discardHandler) Enabled(context.Context, slog.Level) bool {
	return false
}

// Setup installs the default logger. With no logfile everything is
// discarded. The returned func closes the logfile.
func Setup(logfile string, debug bool) (func(), error) {
	if logfile == "" {
		slog.SetDefault(slog.New(&discardHandler{}))
		return func() {}, nil
	}

	f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("couldn't open logfile %q: %w", logfile, err)
	}

	lvl := slog.LevelInfo
	if debug {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl})))

	return func() { f.Close() }, nil
}
