package netev

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/fcchbjm/dnslisten/internal/netutil"
	"github.com/fcchbjm/dnslisten/listen"
)

// udpEndpoint reads datagrams from one UDP listening socket into the shared
// receive buffer and feeds them to the handler.  A positive oobSize makes it
// read and report the ancillary destination address of every datagram.
type udpEndpoint struct {
	logger  *slog.Logger
	state   *pollState
	conn    *net.UDPConn
	rconn   syscall.RawConn
	handler listen.Handler
	readMu  *sync.Mutex
	buf     []byte
	oobSize int
}

// type check
var _ listen.Endpoint = (*udpEndpoint)(nil)

// readLoop reads and dispatches datagrams until the endpoint is closed.
func (e *udpEndpoint) readLoop() {
	e.logger.Debug("entering udp read loop")
	defer e.logger.Debug("udp read loop done")

	for e.state.waitActive() {
		e.readOne()
	}
}

// readOne reads and dispatches a single datagram.  The handler runs under
// the dispatcher read lock and must be done with the shared buffer by the
// time it returns, since the next datagram overwrites it.
func (e *udpEndpoint) readOne() {
	// Wait for a datagram before taking the shared-buffer lock.  The lock
	// must not be held across an idle wait, or the other endpoints sharing
	// the buffer could never read from their own sockets.
	err := e.waitReadable()
	if err != nil {
		e.logReadError(err)

		return
	}

	e.readMu.Lock()
	defer e.readMu.Unlock()

	var n int
	var dst netip.Addr
	var raddr netip.AddrPort
	if e.oobSize > 0 {
		n, dst, raddr, err = netutil.UDPReadAncillary(e.conn, e.buf, e.oobSize)
	} else {
		n, raddr, err = e.conn.ReadFromUDPAddrPort(e.buf)
	}
	if err != nil {
		e.logReadError(err)

		return
	}

	if n == 0 {
		return
	}

	q := &listen.Query{
		Data:       e.buf[:n],
		RemoteAddr: raddr,
		LocalAddr:  dst,
		Proto:      listen.ProtoUDP,
	}

	resp := e.handler.Handle(context.Background(), q)
	if resp == nil {
		return
	}

	if e.oobSize > 0 {
		_, err = netutil.UDPWriteAncillary(resp, e.conn, raddr, dst)
	} else {
		_, err = e.conn.WriteToUDPAddrPort(resp, raddr)
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		e.logger.Error("writing response", slogutil.KeyError, err)
	}
}

// logReadError writes a suitable log message for a read failure.  Timeouts
// are the pause kicks and closed-socket errors are teardown, so neither is
// worth more than a debug line.
func (e *udpEndpoint) logReadError(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, net.ErrClosed):
		e.logger.Debug("udp connection closed")
	case errors.As(err, &netErr) && netErr.Timeout():
		// Pause kick; the loop parks in waitActive.
	default:
		e.logger.Error("reading from udp", slogutil.KeyError, err)
	}
}

// StartPolling implements the [listen.Endpoint] interface for *udpEndpoint.
func (e *udpEndpoint) StartPolling() {
	e.state.resume(func() {
		_ = e.conn.SetReadDeadline(time.Time{})
	})
}

// StopPolling implements the [listen.Endpoint] interface for *udpEndpoint.
func (e *udpEndpoint) StopPolling() {
	e.state.pause(func() {
		_ = e.conn.SetReadDeadline(aLongTimeAgo)
	})
}

// Close implements the [listen.Endpoint] interface for *udpEndpoint.
func (e *udpEndpoint) Close() (err error) {
	if !e.state.markClosed() {
		return nil
	}

	return e.conn.Close()
}

// MemoryUsage implements the [listen.Endpoint] interface for *udpEndpoint.
// The shared buffer is accounted for by its owner, not here.
func (e *udpEndpoint) MemoryUsage() (n uint64) {
	return uint64(unsafe.Sizeof(*e)) + uint64(e.oobSize)
}
