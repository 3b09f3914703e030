//go:build unix

package netutil_test

import (
	"context"
	"net"
	"syscall"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/dnslisten/internal/netutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// syscallConner is the part of the net connection types giving access to the
// underlying socket.
type syscallConner interface {
	SyscallConn() (c syscall.RawConn, err error)
}

// getsockoptInt returns the current value of the socket option (level, opt) on
// the socket behind sc.
func getsockoptInt(t *testing.T, sc syscallConner, level, opt int) (val int) {
	t.Helper()

	raw, err := sc.SyscallConn()
	require.NoError(t, err)

	var optErr error
	err = raw.Control(func(fd uintptr) {
		val, optErr = unix.GetsockoptInt(int(fd), level, opt)
	})
	require.NoError(t, err)
	require.NoError(t, optErr)

	return val
}

func TestUDPListenConfig_v6only(t *testing.T) {
	l := slogutil.NewDiscardLogger()

	testCases := []struct {
		name   string
		v6only netutil.V6Only
		want   int
	}{{
		name:   "enforce",
		v6only: netutil.V6OnlyEnforce,
		want:   1,
	}, {
		name:   "disable",
		v6only: netutil.V6OnlyDisable,
		want:   0,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lc := netutil.UDPListenConfig(l, tc.v6only)

			pc, err := lc.ListenPacket(context.Background(), "udp6", "[::1]:0")
			require.NoError(t, err)
			testutil.CleanupAndRequireSuccess(t, pc.Close)

			conn := testutil.RequireTypeAssert[*net.UDPConn](t, pc)
			got := getsockoptInt(t, conn, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTCPListenConfig_reuseAddr(t *testing.T) {
	lc := netutil.TCPListenConfig(slogutil.NewDiscardLogger(), netutil.V6OnlyUnset)

	lsnr, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, lsnr.Close)

	tl := testutil.RequireTypeAssert[*net.TCPListener](t, lsnr)
	got := getsockoptInt(t, tl, unix.SOL_SOCKET, unix.SO_REUSEADDR)
	assert.Equal(t, 1, got)
}
