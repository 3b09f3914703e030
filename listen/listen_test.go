package listen_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/fcchbjm/dnslisten/internal/handler"
	"github.com/fcchbjm/dnslisten/internal/netev"
	"github.com/fcchbjm/dnslisten/listen"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout is the common timeout of test queries.
const testTimeout = 1 * time.Second

// testLogger is the logger for tests.
var testLogger = slogutil.NewDiscardLogger()

// newTestFront provisions a refusing front on the IPv4 loopback and returns
// the addresses of its UDP and TCP listeners.
func newTestFront(t *testing.T) (front *listen.Front, udpAddr, tcpAddr net.Addr) {
	t.Helper()

	set, err := listen.OpenConfiguredPorts(context.Background(), &listen.Config{
		Logger:               testLogger,
		Interfaces:           []string{"127.0.0.1"},
		TCPAcceptConcurrency: 10,
		BufferSize:           dns.MaxMsgSize,
		Port:                 0,
		UDP:                  true,
		TCP:                  true,
		IPv4:                 true,
	})
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, set.FreeAll)

	addrs := set.LocalAddrs()
	require.Len(t, addrs, 2)

	front, err = listen.NewFront(&listen.FrontConfig{
		Logger:         testLogger,
		Dispatcher:     netev.NewDispatcher(testLogger),
		Handler:        handler.NewStatic(testLogger, dns.RcodeRefused),
		BufferSize:     dns.MaxMsgSize,
		TCPAcceptLimit: 10,
	}, set)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, front.Close)

	return front, addrs[0], addrs[1]
}

// newTestQuery returns a fresh test query.
func newTestQuery() (req *dns.Msg) {
	return (&dns.Msg{}).SetQuestion("example.org.", dns.TypeA)
}

func TestFront_serve(t *testing.T) {
	_, udpAddr, tcpAddr := newTestFront(t)

	testCases := []struct {
		name string
		net  string
		addr string
	}{{
		name: "udp",
		net:  "udp",
		addr: udpAddr.String(),
	}, {
		name: "tcp",
		net:  "tcp",
		addr: tcpAddr.String(),
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &dns.Client{Net: tc.net, Timeout: testTimeout}

			resp, _, err := c.Exchange(newTestQuery(), tc.addr)
			require.NoError(t, err)

			assert.Equal(t, dns.RcodeRefused, resp.Rcode)
		})
	}
}

func TestFront_pauseResume(t *testing.T) {
	front, udpAddr, _ := newTestFront(t)

	c := &dns.Client{Net: "udp", Timeout: 500 * time.Millisecond}

	front.PauseAll()

	_, _, err := c.Exchange(newTestQuery(), udpAddr.String())
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())

	front.ResumeAll()

	require.EventuallyWithT(t, func(t *assert.CollectT) {
		resp, _, excErr := c.Exchange(newTestQuery(), udpAddr.String())
		if assert.NoError(t, excErr) {
			assert.Equal(t, dns.RcodeRefused, resp.Rcode)
		}
	}, testTimeout, 50*time.Millisecond)
}
