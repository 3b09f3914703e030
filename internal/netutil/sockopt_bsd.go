//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package netutil

import "golang.org/x/sys/unix"

// setIPv6MinMTU makes the IPv6 socket send datagrams at the minimum MTU, per
// RFC 3542.
func setIPv6MinMTU(fd uintptr) (res optResult, err error) {
	err = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_USE_MIN_MTU, 1)
	if err != nil {
		return optFailed, err
	}

	return optApplied, nil
}
