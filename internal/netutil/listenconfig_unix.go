//go:build unix

package netutil

import (
	"fmt"
	"syscall"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/sys/unix"
)

// control is used as a [net.ListenConfig.Control] function applying the
// options described in [UDPListenConfig] and [TCPListenConfig].  A failure to
// set a supported option is a hard error; an option the platform doesn't have
// is skipped only where the option itself is optional.
func (ctrl listenControl) control(network, _ string, c syscall.RawConn) (err error) {
	var opErr error
	err = c.Control(func(fd uintptr) {
		opErr = ctrl.apply(network, fd)
	})

	return errors.WithDeferred(opErr, err)
}

// apply sets the configured socket options on fd.  network is the
// family-specific network name, e.g. "udp6".
func (ctrl listenControl) apply(network string, fd uintptr) (err error) {
	if ctrl.reuseAddr {
		err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if err != nil {
			return fmt.Errorf("setting SO_REUSEADDR: %w", err)
		}
	}

	if !isIPv6Network(network) {
		return nil
	}

	if ctrl.v6only != V6OnlyUnset {
		val := 1
		if ctrl.v6only == V6OnlyDisable {
			val = 0
		}

		err = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, val)
		if err != nil {
			return fmt.Errorf("setting IPV6_V6ONLY to %d: %w", val, err)
		}
	}

	if ctrl.minMTU {
		switch res, mtuErr := setIPv6MinMTU(fd); res {
		case optApplied:
			// Go on.
		case optUnsupported:
			ctrl.logger.Debug("ipv6 min-mtu option not supported on this platform")
		case optFailed:
			return fmt.Errorf("setting ipv6 min-mtu option: %w", mtuErr)
		}
	}

	return nil
}
