//go:build unix

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fcchbjm/dnslisten/listen"
)

// waitShutdown blocks until a termination signal arrives.  SIGUSR1 and
// SIGUSR2 pause and resume the listeners for operator-driven load shedding.
func waitShutdown(ctx context.Context, l *slog.Logger, front *listen.Front) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			l.InfoContext(ctx, "pausing listeners")
			front.PauseAll()
		case syscall.SIGUSR2:
			l.InfoContext(ctx, "resuming listeners")
			front.ResumeAll()
		default:
			l.InfoContext(ctx, "shutting down", "signal", sig.String())

			return
		}
	}
}
