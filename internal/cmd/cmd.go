// Package cmd is the dnslisten CLI entry point.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/fcchbjm/dnslisten/internal/handler"
	"github.com/fcchbjm/dnslisten/internal/netev"
	"github.com/fcchbjm/dnslisten/internal/version"
	"github.com/fcchbjm/dnslisten/listen"
	"github.com/miekg/dns"
)

// Main is the entrypoint of the dnslisten CLI.
func Main() {
	opts, showVer, err := parseOptions(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, fmt.Errorf("parsing options: %w", err))

		os.Exit(osutil.ExitCodeArgumentError)
	}

	if showVer {
		fmt.Printf("dnslisten version %s\n", version.Version())

		return
	}

	logOutput := os.Stdout
	if opts.LogOutput != "" {
		// #nosec G302 -- Trust the file path that is given in the
		// configuration.
		logOutput, err = os.OpenFile(opts.LogOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, fmt.Errorf("cannot create a log file: %s", err))

			os.Exit(osutil.ExitCodeArgumentError)
		}

		defer func() { _ = logOutput.Close() }()
	}

	lvl := slog.LevelInfo
	if opts.Verbose {
		lvl = slog.LevelDebug
	}

	l := slogutil.New(&slogutil.Config{
		Output:       logOutput,
		Format:       slogutil.FormatDefault,
		Level:        lvl,
		AddTimestamp: true,
	})

	ctx := context.Background()

	err = runDaemon(ctx, l, opts)
	if err != nil {
		l.ErrorContext(ctx, "running dnslisten", slogutil.KeyError, err)

		// As defers are skipped in case of os.Exit, close logOutput manually.
		if logOutput != os.Stdout {
			_ = logOutput.Close()
		}

		os.Exit(osutil.ExitCodeFailure)
	}
}

// runDaemon provisions the listeners and serves on them until a termination
// signal arrives.  l must not be nil.
func runDaemon(ctx context.Context, l *slog.Logger, opts *Options) (err error) {
	l.InfoContext(
		ctx,
		"dnslisten starting",
		"version", version.Version(),
		"revision", version.Revision(),
	)

	conf := &listen.Config{
		Logger:               l.With(slogutil.KeyPrefix, "listen"),
		Interfaces:           opts.Interfaces,
		TCPAcceptConcurrency: opts.TCPAcceptConcurrency,
		BufferSize:           opts.BufferSize,
		Port:                 uint16(opts.ListenPort),
		UDP:                  opts.UDP,
		TCP:                  opts.TCP,
		IPv4:                 opts.IPv4,
		IPv6:                 opts.IPv6,
		InterfaceAutomatic:   opts.InterfaceAutomatic,
	}

	set, err := listen.OpenConfiguredPorts(ctx, conf)
	if err != nil {
		return fmt.Errorf("opening listening ports: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, set.FreeAll()) }()

	if set.Len() == 0 {
		l.WarnContext(ctx, "nothing to serve; all address families or transports are disabled")

		return nil
	}

	for _, addr := range set.LocalAddrs() {
		l.InfoContext(ctx, "listening", "addr", addr)
	}

	front, err := listen.NewFront(&listen.FrontConfig{
		Logger:         l.With(slogutil.KeyPrefix, "front"),
		Dispatcher:     netev.NewDispatcher(l.With(slogutil.KeyPrefix, "netev")),
		Handler:        handler.NewStatic(l.With(slogutil.KeyPrefix, "handler"), dns.RcodeRefused),
		BufferSize:     opts.BufferSize,
		TCPAcceptLimit: opts.TCPAcceptConcurrency,
	}, set)
	if err != nil {
		return fmt.Errorf("creating listen front: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, front.Close()) }()

	l.InfoContext(
		ctx,
		"serving",
		"endpoints", front.Len(),
		"memory_bytes", front.MemoryFootprint(),
	)

	waitShutdown(ctx, l, front)

	return nil
}
