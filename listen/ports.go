package listen

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/fcchbjm/dnslisten/internal/netutil"
)

// PortKind is the semantic kind of an open listening socket.
type PortKind uint8

// PortKind values.
const (
	// KindUDP is a plain UDP listener.
	KindUDP PortKind = iota

	// KindUDPAncillary is a UDP listener with ancillary source-address
	// delivery enabled, created by automatic-interface provisioning.
	KindUDPAncillary

	// KindTCP is a TCP accept listener.
	KindTCP
)

// String implements the [fmt.Stringer] interface for PortKind.
func (k PortKind) String() (s string) {
	switch k {
	case KindUDP:
		return "udp"
	case KindUDPAncillary:
		return "udp-ancillary"
	case KindTCP:
		return "tcp"
	default:
		return "invalid"
	}
}

// ListenPort is one bound listening socket awaiting adoption into a [Front].
type ListenPort struct {
	// UDP is the open socket of [KindUDP] and [KindUDPAncillary] entries.
	// It is nil after the socket has been transferred to an endpoint.
	UDP *net.UDPConn

	// TCP is the open socket of [KindTCP] entries.  It is nil after the
	// socket has been transferred to an endpoint.
	TCP *net.TCPListener

	// Kind is the semantic kind of the socket.
	Kind PortKind
}

// LocalAddr returns the bound address of the socket, or nil if the socket has
// been transferred already.
func (p *ListenPort) LocalAddr() (addr net.Addr) {
	switch {
	case p.UDP != nil:
		return p.UDP.LocalAddr()
	case p.TCP != nil:
		return p.TCP.Addr()
	default:
		return nil
	}
}

// close closes the underlying socket unless it has been transferred.
func (p *ListenPort) close() (err error) {
	switch {
	case p.UDP != nil:
		return p.UDP.Close()
	case p.TCP != nil:
		return p.TCP.Close()
	default:
		return nil
	}
}

// transfer marks the socket as moved into an endpoint, so that [PortSet.FreeAll]
// no longer closes it.
func (p *ListenPort) transfer() {
	p.UDP = nil
	p.TCP = nil
}

// PortSet owns the open listening sockets of one provisioning pass until
// they are adopted into a [Front].  The zero value is an empty set ready for
// use.  It is not safe for concurrent use.
type PortSet struct {
	ports []*ListenPort
}

// Insert adds p to the set, which takes ownership of its socket.
func (s *PortSet) Insert(p *ListenPort) {
	s.ports = append(s.ports, p)
}

// Len returns the number of entries in the set, including ones already
// transferred to endpoints.
func (s *PortSet) Len() (n int) {
	if s == nil {
		return 0
	}

	return len(s.ports)
}

// LocalAddrs returns the bound addresses of the sockets still present in the
// set, in insertion order.
func (s *PortSet) LocalAddrs() (addrs []net.Addr) {
	for _, p := range s.ports {
		if addr := p.LocalAddr(); addr != nil {
			addrs = append(addrs, addr)
		}
	}

	return addrs
}

// FreeAll closes every socket still present in the set and empties it.  It is
// safe to call on a nil, empty, or partially consumed set, and more than
// once.
func (s *PortSet) FreeAll() (err error) {
	if s == nil {
		return nil
	}

	var errs []error
	for _, p := range s.ports {
		errs = append(errs, p.close())
	}
	s.ports = nil

	return errors.Join(errs...)
}

// createForInterface opens the listening sockets for one interface address
// and appends them to set.  auto selects automatic-interface provisioning,
// in which case addr must hold the family-appropriate wildcard address and
// only UDP is provisioned, with ancillary source-address delivery enabled.
// UDP sockets are created before TCP ones.
//
// When both doUDP and doTCP are false the call is a documented no-op: it
// appends nothing and succeeds, since a fully disabled transport pair is a
// configuration outcome, not a fault.
//
// On error, sockets appended by this call or by previous calls stay in set;
// rolling the whole set back is the caller's responsibility, since the set
// is cumulative across interfaces.
func createForInterface(
	ctx context.Context,
	l *slog.Logger,
	addr netip.AddrPort,
	auto bool,
	doUDP bool,
	doTCP bool,
	set *PortSet,
) (err error) {
	if !doUDP && !doTCP {
		return nil
	}

	if auto {
		// Note that v6only is enforced even on the IPv4 wildcard socket to
		// keep the return-address handling of the two sockets uniform.
		conn, sErr := createUDPSocket(ctx, l, addr, netutil.V6OnlyEnforce)
		if sErr != nil {
			return sErr
		}

		set.Insert(&ListenPort{
			UDP:  conn,
			Kind: KindUDPAncillary,
		})

		sErr = netutil.UDPEnableAncillary(conn)
		if sErr != nil {
			return fmt.Errorf(
				"enabling packet info on udp %s: %w; disable interface-automatic if the platform does not support it",
				addr,
				sErr,
			)
		}
	} else if doUDP {
		conn, sErr := createUDPSocket(ctx, l, addr, netutil.V6OnlyEnforce)
		if sErr != nil {
			return sErr
		}

		set.Insert(&ListenPort{
			UDP:  conn,
			Kind: KindUDP,
		})
	}

	if doTCP {
		lsnr, sErr := createTCPAcceptSocket(ctx, l, addr, netutil.V6OnlyEnforce)
		if sErr != nil {
			return sErr
		}

		set.Insert(&ListenPort{
			TCP:  lsnr,
			Kind: KindTCP,
		})
	}

	return nil
}
