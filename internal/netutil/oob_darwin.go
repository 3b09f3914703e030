//go:build darwin

package netutil

import (
	"net/netip"

	"golang.org/x/net/ipv6"
)

// udpMakeOOBWithSrc makes the OOB data with the specified source IP.
func udpMakeOOBWithSrc(src netip.Addr) (b []byte) {
	if src.Is4() {
		// Do not set the IPv4 source address via OOB, because it can cause
		// the address to become unspecified on darwin.
		//
		// See https://github.com/AdguardTeam/AdGuardHome/issues/2807.
		return []byte{}
	}

	return (&ipv6.ControlMessage{
		Src: src.AsSlice(),
	}).Marshal()
}
