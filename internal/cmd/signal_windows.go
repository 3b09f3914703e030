//go:build windows

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fcchbjm/dnslisten/listen"
)

// waitShutdown blocks until a termination signal arrives.  Windows has no
// user signals, so the pause and resume controls are unavailable there.
func waitShutdown(ctx context.Context, l *slog.Logger, _ *listen.Front) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	l.InfoContext(ctx, "shutting down", "signal", sig.String())
}
