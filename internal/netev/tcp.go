package netev

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"
	"unsafe"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/netutil"
	"github.com/AdguardTeam/golibs/syncutil"
	"github.com/fcchbjm/dnslisten/listen"
)

// errTooLarge means that a message is larger than its 2-byte length prefix
// can express.
const errTooLarge errors.Error = "message is too large"

// tcpAcceptEndpoint accepts connections from one TCP listening socket and
// serves length-prefixed queries on each of them, at most acceptLimit
// connections at a time.  Every connection gets its own buffer, so accepted
// connections are independent of the shared UDP buffer and of pause state.
type tcpAcceptEndpoint struct {
	logger  *slog.Logger
	state   *pollState
	lsnr    *net.TCPListener
	handler listen.Handler
	sema    syncutil.Semaphore
	bufSize int
}

// type check
var _ listen.Endpoint = (*tcpAcceptEndpoint)(nil)

// newTCPAcceptEndpoint returns an endpoint ready to accept from l.
func newTCPAcceptEndpoint(
	parent *slog.Logger,
	l *net.TCPListener,
	acceptLimit int,
	bufSize int,
	h listen.Handler,
) (e *tcpAcceptEndpoint) {
	return &tcpAcceptEndpoint{
		logger:  parent.With("addr", l.Addr(), "proto", listen.ProtoTCP),
		state:   newPollState(),
		lsnr:    l,
		handler: h,
		sema:    syncutil.NewChanSemaphore(uint(acceptLimit)),
		bufSize: bufSize,
	}
}

// acceptLoop accepts and serves connections until the endpoint is closed.
func (e *tcpAcceptEndpoint) acceptLoop() {
	e.logger.Debug("entering tcp accept loop")
	defer e.logger.Debug("tcp accept loop done")

	for e.state.waitActive() {
		conn, err := e.lsnr.Accept()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, net.ErrClosed):
				e.logger.Debug("tcp listener closed")
			case errors.As(err, &netErr) && netErr.Timeout():
				// Pause kick; the loop parks in waitActive.
			default:
				e.logger.Error("accepting tcp connection", slogutil.KeyError, err)
			}

			continue
		}

		err = e.sema.Acquire(context.Background())
		if err != nil {
			// Only happens when the context is canceled.
			_ = conn.Close()

			continue
		}

		go func() {
			defer e.sema.Release()

			e.serveConn(conn)
		}()
	}
}

// serveConn reads length-prefixed queries from conn and writes the responses
// back until the client goes away, an error occurs, or the handler chooses
// not to respond.
func (e *tcpAcceptEndpoint) serveConn(conn net.Conn) {
	defer func() {
		err := conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			e.logger.Debug("closing accepted conn", slogutil.KeyError, err)
		}
	}()

	raddr := netutil.NetAddrToAddrPort(conn.RemoteAddr())
	buf := make([]byte, e.bufSize)
	for {
		err := conn.SetDeadline(time.Now().Add(defaultTimeout))
		if err != nil {
			e.logger.Debug("setting conn deadline", slogutil.KeyError, err)

			return
		}

		var n int
		n, err = readPrefixed(conn, buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.logger.Debug("reading prefixed msg", slogutil.KeyError, err)
			}

			return
		}

		q := &listen.Query{
			Data:       buf[:n],
			RemoteAddr: raddr,
			Proto:      listen.ProtoTCP,
		}

		resp := e.handler.Handle(context.Background(), q)
		if resp == nil {
			return
		}

		err = writePrefixed(conn, resp)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				e.logger.Debug("writing prefixed msg", slogutil.KeyError, err)
			}

			return
		}
	}
}

// StartPolling implements the [listen.Endpoint] interface for
// *tcpAcceptEndpoint.
func (e *tcpAcceptEndpoint) StartPolling() {
	e.state.resume(func() {
		_ = e.lsnr.SetDeadline(time.Time{})
	})
}

// StopPolling implements the [listen.Endpoint] interface for
// *tcpAcceptEndpoint.  Connections accepted earlier keep being served.
func (e *tcpAcceptEndpoint) StopPolling() {
	e.state.pause(func() {
		_ = e.lsnr.SetDeadline(aLongTimeAgo)
	})
}

// Close implements the [listen.Endpoint] interface for *tcpAcceptEndpoint.
func (e *tcpAcceptEndpoint) Close() (err error) {
	if !e.state.markClosed() {
		return nil
	}

	return e.lsnr.Close()
}

// MemoryUsage implements the [listen.Endpoint] interface for
// *tcpAcceptEndpoint.  Per-connection buffers are transient and are not
// counted.
func (e *tcpAcceptEndpoint) MemoryUsage() (n uint64) {
	return uint64(unsafe.Sizeof(*e)) + uint64(e.bufSize)
}

// readPrefixed reads a message with a 2-byte length prefix from conn into
// buf and returns its length.
func readPrefixed(conn net.Conn, buf []byte) (n int, err error) {
	l := make([]byte, 2)
	_, err = io.ReadFull(conn, l)
	if err != nil {
		return 0, fmt.Errorf("reading len: %w", err)
	}

	msgLen := int(binary.BigEndian.Uint16(l))
	if msgLen > len(buf) {
		return 0, errTooLarge
	}

	_, err = io.ReadFull(conn, buf[:msgLen])
	if err != nil {
		return 0, fmt.Errorf("reading msg: %w", err)
	}

	return msgLen, nil
}

// writePrefixed writes msg to conn with a 2-byte length prefix.
func writePrefixed(conn net.Conn, msg []byte) (err error) {
	if len(msg) > int(^uint16(0)) {
		return errTooLarge
	}

	b := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(b, uint16(len(msg)))
	copy(b[2:], msg)

	_, err = conn.Write(b)
	if err != nil {
		return fmt.Errorf("writing msg: %w", err)
	}

	return nil
}
