// Package listen turns a declarative listener configuration into a set of
// bound, correctly-configured listening sockets and wraps each of them into
// an event-driven endpoint that a dispatcher drives.  It deliberately stops
// at the transport boundary: no DNS message is ever parsed here.
//
// The provisioning flow is:
//
//	OpenConfiguredPorts -> PortSet -> NewFront -> Front
//
// The [PortSet] owns the raw sockets until the [Front] adopts them, so a
// failure on any step leaves no socket behind as long as the caller releases
// the set with [PortSet.FreeAll] and the front with [Front.Close].
package listen

import (
	"context"
	"net"
	"net/netip"
)

// Proto is the transport protocol of a query.
type Proto string

// Proto values.
const (
	ProtoUDP Proto = "udp"
	ProtoTCP Proto = "tcp"
)

// Query is one raw query delivered by an endpoint.
type Query struct {
	// RemoteAddr is the source address of the query.
	RemoteAddr netip.AddrPort

	// LocalAddr is the address the query arrived on.  It is only set by
	// endpoints with ancillary packet info enabled and is empty otherwise.
	LocalAddr netip.Addr

	// Data is the raw query message.  It points into a receive buffer that
	// is reused for the next query, so implementations of [Handler] must not
	// retain it past the call.
	Data []byte

	// Proto is the transport the query arrived over.
	Proto Proto
}

// Handler processes queries delivered by endpoints.
type Handler interface {
	// Handle processes q and returns the raw response to send back, or nil
	// when no response should be sent.
	Handle(ctx context.Context, q *Query) (resp []byte)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as
// [Handler]s.
type HandlerFunc func(ctx context.Context, q *Query) (resp []byte)

// type check
var _ Handler = HandlerFunc(nil)

// Handle implements the [Handler] interface for HandlerFunc.
func (f HandlerFunc) Handle(ctx context.Context, q *Query) (resp []byte) {
	return f(ctx, q)
}

// Endpoint is a live event-driven wrapper around one listening socket,
// produced and driven by a [Dispatcher].  All endpoints produced through this
// package are accept-class: they take in new datagrams or new connections,
// as opposed to serving connections already accepted.
type Endpoint interface {
	// StartPolling re-registers the endpoint with the dispatcher, restoring
	// its default registration.  Starting an endpoint that is already
	// polling is a no-op.
	StartPolling()

	// StopPolling deregisters the endpoint from the dispatcher without
	// closing the underlying socket.  Stopping an already-stopped endpoint
	// is a no-op.
	StopPolling()

	// Close deregisters the endpoint and closes the underlying socket.
	Close() (err error)

	// MemoryUsage returns the approximate number of bytes taken by the
	// endpoint itself, not counting buffers shared with other endpoints.
	MemoryUsage() (n uint64)
}

// Dispatcher adopts raw listening sockets into the endpoints it drives.  It
// is the boundary with the surrounding event loop; ownership of a socket
// passes to the returned endpoint on success and stays with the caller on
// error.
type Dispatcher interface {
	// WrapUDP adopts c into an endpoint reading plain datagrams into buf.
	WrapUDP(c *net.UDPConn, buf []byte, h Handler) (e Endpoint, err error)

	// WrapUDPAncillary adopts c, which must have ancillary packet info
	// enabled, into an endpoint that also reports the destination address of
	// every datagram it reads into buf.
	WrapUDPAncillary(c *net.UDPConn, buf []byte, h Handler) (e Endpoint, err error)

	// WrapTCPAccept adopts l into an endpoint accepting at most acceptLimit
	// connections at a time, each with its own buffer of bufSize bytes.
	WrapTCPAccept(l *net.TCPListener, acceptLimit, bufSize int, h Handler) (e Endpoint, err error)

	// BaseMemoryUsage returns the approximate number of bytes taken by the
	// dispatcher itself, excluding its endpoints.
	BaseMemoryUsage() (n uint64)
}
