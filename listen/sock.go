package listen

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"github.com/fcchbjm/dnslisten/internal/netutil"
)

// createUDPSocket opens a datagram socket bound to addr.  For IPv6 addresses
// the IPV6_V6ONLY option is applied according to v6only, and the minimum-MTU
// option is requested where the platform has one.  The returned socket is
// bound and non-blocking.  l must not be nil.
func createUDPSocket(
	ctx context.Context,
	l *slog.Logger,
	addr netip.AddrPort,
	v6only netutil.V6Only,
) (conn *net.UDPConn, err error) {
	l.DebugContext(ctx, "creating udp socket", "addr", addr, "v6only", v6only)

	network := "udp6"
	if addr.Addr().Unmap().Is4() {
		network = "udp4"
	}

	pc, err := netutil.UDPListenConfig(l, v6only).ListenPacket(ctx, network, addr.String())
	if err != nil {
		return nil, fmt.Errorf("listening on udp %s: %w", addr, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		// Shouldn't happen with the networks used above.
		_ = pc.Close()

		return nil, fmt.Errorf("unexpected connection type on udp %s: %T", addr, pc)
	}

	return conn, nil
}

// createTCPAcceptSocket opens a stream socket bound to addr and puts it into
// the listening state.  SO_REUSEADDR is set before binding, and for IPv6
// addresses the IPV6_V6ONLY option is applied according to v6only.  The
// returned listener is bound and non-blocking; the accept backlog is the one
// the Go runtime requests from the system.  l must not be nil.
func createTCPAcceptSocket(
	ctx context.Context,
	l *slog.Logger,
	addr netip.AddrPort,
	v6only netutil.V6Only,
) (lsnr *net.TCPListener, err error) {
	l.DebugContext(ctx, "creating tcp socket", "addr", addr, "v6only", v6only)

	network := "tcp6"
	if addr.Addr().Unmap().Is4() {
		network = "tcp4"
	}

	ln, err := netutil.TCPListenConfig(l, v6only).Listen(ctx, network, addr.String())
	if err != nil {
		return nil, fmt.Errorf("listening on tcp %s: %w", addr, err)
	}

	lsnr, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()

		return nil, fmt.Errorf("unexpected listener type on tcp %s: %T", addr, ln)
	}

	return lsnr, nil
}
