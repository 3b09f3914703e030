//go:build unix

package netev

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/dnslisten/internal/netutil"
	"github.com/fcchbjm/dnslisten/listen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_wrapUDPAncillary(t *testing.T) {
	d := NewDispatcher(testLogger)
	buf := make([]byte, 512)

	localCh := make(chan netip.Addr, 1)
	h := listen.HandlerFunc(func(_ context.Context, q *listen.Query) (resp []byte) {
		localCh <- q.LocalAddr

		resp = make([]byte, len(q.Data))
		copy(resp, q.Data)

		return resp
	})

	// Two ancillary endpoints on one dispatcher, like the provisioning of
	// automatic-interface mode.
	conns := make([]*net.UDPConn, 2)
	for i := range conns {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		require.NoError(t, err)
		require.NoError(t, netutil.UDPEnableAncillary(conn))

		e, wErr := d.WrapUDPAncillary(conn, buf, h)
		require.NoError(t, wErr)
		testutil.CleanupAndRequireSuccess(t, e.Close)

		conns[i] = conn
	}

	// The second endpoint must be served while the first one stays idle.
	cli, err := net.Dial("udp4", conns[1].LocalAddr().String())
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, cli.Close)

	require.NoError(t, cli.SetDeadline(time.Now().Add(testTimeout)))

	_, err = cli.Write([]byte("ping"))
	require.NoError(t, err)

	rbuf := make([]byte, 512)
	n, err := cli.Read(rbuf)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), rbuf[:n])

	local := <-localCh
	require.True(t, local.IsValid())
	assert.True(t, local.IsLoopback())
}
