package listen

import "log/slog"

// Config is the declarative listener configuration of one provisioning pass.
type Config struct {
	// Logger is used for provisioning and lifecycle logs.  If it is nil,
	// [slog.Default] is used.
	Logger *slog.Logger

	// Interfaces is the list of literal interface addresses to listen on.
	// When it is empty, the loopback addresses of the enabled families are
	// used, or the wildcard ones in automatic-interface mode.
	Interfaces []string

	// TCPAcceptConcurrency is the number of simultaneously served
	// connections per TCP listener.  Zero disables TCP regardless of the TCP
	// flag.
	TCPAcceptConcurrency int

	// BufferSize is the size, in bytes, of the shared UDP receive buffer and
	// of the per-connection buffers of TCP endpoints.
	BufferSize int

	// Port is the listening port.
	Port uint16

	// UDP and TCP select the transports to provision.
	UDP bool
	TCP bool

	// IPv4 and IPv6 select the address families to provision.  With both
	// unset, provisioning is a no-op that yields an empty set.
	IPv4 bool
	IPv6 bool

	// InterfaceAutomatic enables automatic-interface provisioning: single
	// wildcard UDP sockets that rely on ancillary source-address delivery to
	// learn the true destination address of every datagram.  It requires
	// both address families and UDP, and is downgraded with a warning when
	// the prerequisites are not met.
	InterfaceAutomatic bool
}
