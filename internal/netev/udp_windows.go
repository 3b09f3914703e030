//go:build windows

package netev

import (
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/sys/windows"
)

// peekInterval is how often an idle endpoint polls its socket for a queued
// datagram.
const peekInterval = 5 * time.Millisecond

// waitReadable blocks until a datagram is queued on the socket, without
// consuming anything.  Windows does not implement the raw readiness wait, so
// readability is detected by polling with a non-consuming MSG_PEEK.
func (e *udpEndpoint) waitReadable() (err error) {
	buf := make([]byte, 1)
	for {
		var peekErr error
		err = e.rconn.Control(func(fd uintptr) {
			_, _, peekErr = windows.Recvfrom(windows.Handle(fd), buf, windows.MSG_PEEK)
		})
		if err != nil {
			return err
		}

		switch {
		case peekErr == nil, errors.Is(peekErr, windows.WSAEMSGSIZE):
			// A datagram is queued; WSAEMSGSIZE only means it is larger than
			// the peek buffer.
			return nil
		case errors.Is(peekErr, windows.WSAEWOULDBLOCK):
			time.Sleep(peekInterval)
		default:
			return peekErr
		}
	}
}
