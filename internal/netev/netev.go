// Package netev is a goroutine-based event dispatcher for the listening
// endpoints of the listen package.  Each endpoint is driven by one reading
// goroutine; queries read into the shared UDP buffer are handled one at a
// time, preserving the semantics of a single-threaded poll loop.
package netev

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
	"unsafe"

	"github.com/fcchbjm/dnslisten/internal/netutil"
	"github.com/fcchbjm/dnslisten/listen"
)

// defaultTimeout is the timeout of a single read or write on an accepted TCP
// connection.
const defaultTimeout = 10 * time.Second

// aLongTimeAgo is a non-zero time far in the past used to interrupt blocked
// reads immediately.
var aLongTimeAgo = time.Unix(1, 0)

// Dispatcher implements [listen.Dispatcher] over goroutine read loops.
type Dispatcher struct {
	logger *slog.Logger

	// udpMu serializes reads into the shared UDP receive buffer and the
	// handler calls consuming it across every UDP endpoint of this
	// dispatcher.
	udpMu *sync.Mutex
}

// type check
var _ listen.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher returns a new dispatcher.  l must not be nil.
func NewDispatcher(l *slog.Logger) (d *Dispatcher) {
	return &Dispatcher{
		logger: l,
		udpMu:  &sync.Mutex{},
	}
}

// WrapUDP implements the [listen.Dispatcher] interface for *Dispatcher.  The
// endpoint starts polling immediately.
func (d *Dispatcher) WrapUDP(
	c *net.UDPConn,
	buf []byte,
	h listen.Handler,
) (e listen.Endpoint, err error) {
	ue, err := d.wrapUDP(c, buf, h, 0)
	if err != nil {
		return nil, err
	}

	return ue, nil
}

// WrapUDPAncillary implements the [listen.Dispatcher] interface for
// *Dispatcher.  The endpoint starts polling immediately.
func (d *Dispatcher) WrapUDPAncillary(
	c *net.UDPConn,
	buf []byte,
	h listen.Handler,
) (e listen.Endpoint, err error) {
	ue, err := d.wrapUDP(c, buf, h, netutil.UDPOOBSize())
	if err != nil {
		return nil, err
	}

	return ue, nil
}

// wrapUDP adopts c into a reading endpoint.  A positive oobSize turns on the
// ancillary-data handling.
func (d *Dispatcher) wrapUDP(
	c *net.UDPConn,
	buf []byte,
	h listen.Handler,
	oobSize int,
) (e *udpEndpoint, err error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("getting raw udp connection: %w", err)
	}

	e = &udpEndpoint{
		logger:  d.logger.With("addr", c.LocalAddr(), "proto", listen.ProtoUDP),
		state:   newPollState(),
		conn:    c,
		rconn:   rc,
		handler: h,
		readMu:  d.udpMu,
		buf:     buf,
		oobSize: oobSize,
	}

	go e.readLoop()

	return e, nil
}

// WrapTCPAccept implements the [listen.Dispatcher] interface for
// *Dispatcher.  The endpoint starts polling immediately.
func (d *Dispatcher) WrapTCPAccept(
	l *net.TCPListener,
	acceptLimit int,
	bufSize int,
	h listen.Handler,
) (e listen.Endpoint, err error) {
	te := newTCPAcceptEndpoint(d.logger, l, acceptLimit, bufSize, h)

	go te.acceptLoop()

	return te, nil
}

// BaseMemoryUsage implements the [listen.Dispatcher] interface for
// *Dispatcher.
func (d *Dispatcher) BaseMemoryUsage() (n uint64) {
	return uint64(unsafe.Sizeof(*d)) + uint64(unsafe.Sizeof(*d.udpMu))
}

// pollState tracks whether an endpoint is polling, paused, or closed.  It
// parks the reading goroutine while paused; queries arriving meanwhile stay
// queued in the socket buffer and are delivered after the endpoint resumes.
type pollState struct {
	mu       *sync.Mutex
	resumeCh chan struct{}
	paused   bool
	closed   bool
}

// newPollState returns a new poll state in the polling position.
func newPollState() (st *pollState) {
	return &pollState{
		mu: &sync.Mutex{},
	}
}

// pause moves the state into the paused position.  kick must interrupt the
// read the endpoint's goroutine may be blocked in.
func (st *pollState) pause(kick func()) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.paused || st.closed {
		return
	}

	st.paused = true
	st.resumeCh = make(chan struct{})
	kick()
}

// resume moves the state back into the polling position.  unkick must undo
// the read interruption applied by the pause kick.
func (st *pollState) resume(unkick func()) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.paused || st.closed {
		return
	}

	st.paused = false
	unkick()
	close(st.resumeCh)
}

// markClosed moves the state into its terminal position, releasing the
// parked goroutine if there is one.  It returns false if the state was
// already closed.
func (st *pollState) markClosed() (ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return false
	}

	st.closed = true
	if st.paused {
		close(st.resumeCh)
	}

	return true
}

// waitActive blocks while the state is paused.  It returns false when the
// state is closed and the goroutine must exit.
func (st *pollState) waitActive() (ok bool) {
	st.mu.Lock()
	for st.paused && !st.closed {
		ch := st.resumeCh
		st.mu.Unlock()
		<-ch
		st.mu.Lock()
	}

	closed := st.closed
	st.mu.Unlock()

	return !closed
}
