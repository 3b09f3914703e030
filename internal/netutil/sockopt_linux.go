//go:build linux

package netutil

import "golang.org/x/sys/unix"

// ipv6MinMTU is the minimum MTU every IPv6-capable link must support, per
// RFC 8200.
const ipv6MinMTU = 1280

// setIPv6MinMTU caps the path MTU of the IPv6 socket at the minimum MTU.
// Linux has no IPV6_USE_MIN_MTU, so the fixed IPV6_MTU value is used instead.
func setIPv6MinMTU(fd uintptr) (res optResult, err error) {
	err = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_MTU, ipv6MinMTU)
	if err != nil {
		return optFailed, err
	}

	return optApplied, nil
}
