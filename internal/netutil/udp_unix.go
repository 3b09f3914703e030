//go:build unix

package netutil

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/AdguardTeam/golibs/netutil"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// These are the control-message flags that make the stack deliver the
// destination address and the receiving interface of every datagram.  For
// both families the flags are:
//
//   - FlagDst
//   - FlagInterface
const (
	ipv4Flags ipv4.ControlFlags = ipv4.FlagDst | ipv4.FlagInterface
	ipv6Flags ipv6.ControlFlags = ipv6.FlagDst | ipv6.FlagInterface
)

// udpOOBSize returns the maximum length of the control messages the flags
// above produce.
func udpOOBSize() (oobSize int) {
	l4, l6 := len(ipv4.NewControlMessage(ipv4Flags)), len(ipv6.NewControlMessage(ipv6Flags))

	return max(l4, l6)
}

// udpEnableAncillary requests destination-address control messages for both
// families on c.  A socket bound to a single family legitimately fails for
// the other one, so only a failure of both is an error.
func udpEnableAncillary(c *net.UDPConn) (err error) {
	err6 := ipv6.NewPacketConn(c).SetControlMessage(ipv6Flags, true)
	err4 := ipv4.NewPacketConn(c).SetControlMessage(ipv4Flags, true)
	if err6 != nil && err4 != nil {
		return fmt.Errorf("setting control messages: ipv4: %v; ipv6: %v", err4, err6)
	}

	return nil
}

// udpDstFromOOB returns the destination address from the raw control-message
// data, if any.
func udpDstFromOOB(oob []byte) (dst netip.Addr, err error) {
	cm6 := &ipv6.ControlMessage{}
	if cm6.Parse(oob) == nil && cm6.Dst != nil {
		return netutil.IPToAddr(cm6.Dst, netutil.AddrFamilyIPv6)
	}

	cm4 := &ipv4.ControlMessage{}
	if cm4.Parse(oob) == nil && cm4.Dst != nil {
		return netutil.IPToAddr(cm4.Dst, netutil.AddrFamilyIPv4)
	}

	return netip.Addr{}, nil
}

func udpReadAncillary(
	c *net.UDPConn,
	buf []byte,
	oobSize int,
) (n int, dst netip.Addr, raddr netip.AddrPort, err error) {
	oob := make([]byte, oobSize)
	var oobn int
	n, oobn, _, raddr, err = c.ReadMsgUDPAddrPort(buf, oob)
	if err != nil {
		return 0, netip.Addr{}, netip.AddrPort{}, err
	}

	dst, err = udpDstFromOOB(oob[:oobn])
	if err != nil {
		return 0, netip.Addr{}, netip.AddrPort{}, err
	}

	return n, dst, raddr, nil
}

func udpWriteAncillary(
	data []byte,
	c *net.UDPConn,
	raddr netip.AddrPort,
	src netip.Addr,
) (n int, err error) {
	n, _, err = c.WriteMsgUDPAddrPort(data, udpMakeOOBWithSrc(src), raddr)

	return n, err
}
