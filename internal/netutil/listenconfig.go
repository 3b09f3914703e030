package netutil

import (
	"log/slog"
	"net"
)

// UDPListenConfig returns a [net.ListenConfig] for a UDP listening socket.
// For IPv6 sockets it applies the IPV6_V6ONLY option according to v6only and
// requests the minimum-MTU option where the platform has one, since IPv6
// routers do not fragment datagrams in flight and oversized EDNS0 responses
// must be capped unless the stack guarantees hop-by-hop handling.  l must not
// be nil.
func UDPListenConfig(l *slog.Logger, v6only V6Only) (lc *net.ListenConfig) {
	return &net.ListenConfig{
		Control: listenControl{
			logger: l,
			v6only: v6only,
			minMTU: true,
		}.control,
	}
}

// TCPListenConfig returns a [net.ListenConfig] for a TCP listening socket.
// It applies SO_REUSEADDR, and the IPV6_V6ONLY option according to v6only on
// IPv6 sockets.  l must not be nil.
func TCPListenConfig(l *slog.Logger, v6only V6Only) (lc *net.ListenConfig) {
	return &net.ListenConfig{
		Control: listenControl{
			logger:    l,
			v6only:    v6only,
			reuseAddr: true,
		}.control,
	}
}

// listenControl is a wrapper around the socket options to apply from a
// [net.ListenConfig] control function.
type listenControl struct {
	logger    *slog.Logger
	v6only    V6Only
	minMTU    bool
	reuseAddr bool
}

// isIPv6Network reports whether network is an IPv6-specific network name,
// e.g. "udp6" or "tcp6".
func isIPv6Network(network string) (ok bool) {
	return len(network) > 0 && network[len(network)-1] == '6'
}
