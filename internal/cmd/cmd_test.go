package cmd

import (
	"context"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stretchr/testify/require"
)

func TestRunDaemon_nothingToServe(t *testing.T) {
	testCases := []struct {
		tweak func(opts *Options)
		name  string
	}{{
		tweak: func(opts *Options) { opts.IPv4, opts.IPv6 = false, false },
		name:  "families_disabled",
	}, {
		tweak: func(opts *Options) { opts.UDP, opts.TCP = false, false },
		name:  "transports_disabled",
	}, {
		tweak: func(opts *Options) { opts.UDP, opts.TCPAcceptConcurrency = false, 0 },
		name:  "tcp_disabled_by_concurrency",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := defaultOptions()
			tc.tweak(opts)

			// No socket is provisioned here, so the daemon must return
			// right away without trying to bind the default port.
			err := runDaemon(context.Background(), slogutil.NewDiscardLogger(), opts)
			require.NoError(t, err)
		})
	}
}
