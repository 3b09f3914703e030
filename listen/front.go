package listen

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrNoSockets is returned by [NewFront] when not a single endpoint came out
// of the provisioning pass.
const ErrNoSockets errors.Error = "could not open sockets to accept queries"

// FrontConfig configures a [Front].
type FrontConfig struct {
	// Logger is used for lifecycle logs.  If it is nil, [slog.Default] is
	// used.
	Logger *slog.Logger

	// Dispatcher adopts the raw sockets into live endpoints.  It must not be
	// nil.
	Dispatcher Dispatcher

	// Handler receives every query read by the endpoints.  It must not be
	// nil.
	Handler Handler

	// BufferSize is the capacity, in bytes, of the shared UDP receive buffer
	// and of the per-connection buffers of TCP endpoints.
	BufferSize int

	// TCPAcceptLimit is the number of simultaneously served connections per
	// TCP listener.
	TCPAcceptLimit int
}

// Front is the aggregate owning every live listening endpoint of one
// provisioning pass, along with the shared UDP receive buffer.  It is not
// safe for concurrent use.
type Front struct {
	logger    *slog.Logger
	disp      Dispatcher
	endpoints []Endpoint
	udpBuf    []byte
}

// NewFront allocates the shared UDP receive buffer and adopts every socket
// of ports into a live endpoint.  Successfully adopted sockets are marked as
// transferred in ports; the caller keeps ownership of the set and should
// release it with [PortSet.FreeAll] regardless of the result, which closes
// exactly the sockets that were not adopted.
//
// On any adoption failure the partially-built front, including every
// endpoint adopted so far, is released before the error is returned.  Any
// failure, including a pass that yields no endpoint at all, wraps
// [ErrNoSockets].
func NewFront(conf *FrontConfig, ports *PortSet) (f *Front, err error) {
	l := conf.Logger
	if l == nil {
		l = slog.Default()
	}

	f = &Front{
		logger: l,
		disp:   conf.Dispatcher,
		udpBuf: make([]byte, conf.BufferSize),
	}

	for _, p := range ports.ports {
		var e Endpoint
		switch p.Kind {
		case KindUDP:
			e, err = f.disp.WrapUDP(p.UDP, f.udpBuf, conf.Handler)
		case KindUDPAncillary:
			e, err = f.disp.WrapUDPAncillary(p.UDP, f.udpBuf, conf.Handler)
		case KindTCP:
			e, err = f.disp.WrapTCPAccept(p.TCP, conf.TCPAcceptLimit, conf.BufferSize, conf.Handler)
		default:
			err = fmt.Errorf("bad port kind %d", p.Kind)
		}
		if err != nil {
			err = fmt.Errorf(
				"%w: adopting %s listener on %s: %w",
				ErrNoSockets,
				p.Kind,
				p.LocalAddr(),
				err,
			)

			return nil, errors.WithDeferred(err, f.Close())
		}

		p.transfer()
		f.endpoints = append(f.endpoints, e)
	}

	if len(f.endpoints) == 0 {
		_ = f.Close()

		return nil, ErrNoSockets
	}

	return f, nil
}

// Len returns the number of endpoints the front owns.
func (f *Front) Len() (n int) {
	if f == nil {
		return 0
	}

	return len(f.endpoints)
}

// Close releases every endpoint, closing its underlying socket, and the
// shared buffer.  It is safe to call on a nil front and more than once.
func (f *Front) Close() (err error) {
	if f == nil {
		return nil
	}

	var errs []error
	for _, e := range f.endpoints {
		errs = append(errs, e.Close())
	}
	f.endpoints = nil
	f.udpBuf = nil

	return errors.Join(errs...)
}

// PauseAll deregisters every endpoint from polling without closing it,
// shedding new queries while TCP connections already accepted proceed.  The
// front only ever owns accept-class endpoints, so no further filtering is
// needed here.
func (f *Front) PauseAll() {
	for _, e := range f.endpoints {
		e.StopPolling()
	}
}

// ResumeAll restores the polling registration of every endpoint, undoing
// [Front.PauseAll].
func (f *Front) ResumeAll() {
	for _, e := range f.endpoints {
		e.StartPolling()
	}
}

// MemoryFootprint returns the approximate number of bytes taken by the
// front, the dispatcher base, the shared buffer, and every endpoint.  It is
// operational accounting, not an exact measurement.
func (f *Front) MemoryFootprint() (n uint64) {
	if f == nil {
		return 0
	}

	n = uint64(unsafe.Sizeof(*f)) + f.disp.BaseMemoryUsage()
	n += uint64(unsafe.Sizeof(f.udpBuf)) + uint64(cap(f.udpBuf))
	for _, e := range f.endpoints {
		n += e.MemoryUsage()
	}

	return n
}
