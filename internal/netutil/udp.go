package netutil

import (
	"net"
	"net/netip"
)

// UDPOOBSize returns the maximum size of the out-of-band data that a read
// from a UDP socket prepared with [UDPEnableAncillary] may deliver.
func UDPOOBSize() (oobSize int) {
	return udpOOBSize()
}

// UDPEnableAncillary turns on delivery of the original destination address
// and receiving interface alongside every datagram received on c.  This is
// the ancillary packet-info facility that automatic-interface provisioning
// depends on.  The returned error means that the platform cannot deliver the
// ancillary data at all.
func UDPEnableAncillary(c *net.UDPConn) (err error) {
	return udpEnableAncillary(c)
}

// UDPReadAncillary reads one datagram from c into buf, along with up to
// oobSize bytes of control-message data.  It returns the number of bytes
// copied into buf, the destination address from the ancillary data, if any,
// and the source address of the datagram.
func UDPReadAncillary(
	c *net.UDPConn,
	buf []byte,
	oobSize int,
) (n int, dst netip.Addr, raddr netip.AddrPort, err error) {
	return udpReadAncillary(c, buf, oobSize)
}

// UDPWriteAncillary writes data to raddr via c, setting the source address of
// the datagram to src where the platform allows that.
func UDPWriteAncillary(
	data []byte,
	c *net.UDPConn,
	raddr netip.AddrPort,
	src netip.Addr,
) (n int, err error) {
	return udpWriteAncillary(data, c, raddr, src)
}
