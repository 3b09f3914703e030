//go:build windows

package netutil

import (
	"net"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
)

// errNoAncillary is returned on platforms that cannot deliver the ancillary
// packet-info data.
const errNoAncillary errors.Error = "ancillary packet info is not supported on this platform"

func udpOOBSize() (oobSize int) {
	return 0
}

func udpEnableAncillary(_ *net.UDPConn) (err error) {
	return errNoAncillary
}

func udpReadAncillary(
	c *net.UDPConn,
	buf []byte,
	_ int,
) (n int, dst netip.Addr, raddr netip.AddrPort, err error) {
	n, raddr, err = c.ReadFromUDPAddrPort(buf)

	return n, netip.Addr{}, raddr, err
}

func udpWriteAncillary(
	data []byte,
	c *net.UDPConn,
	raddr netip.AddrPort,
	_ netip.Addr,
) (n int, err error) {
	return c.WriteToUDPAddrPort(data, raddr)
}
