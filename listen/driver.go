package listen

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
)

// Well-known listening addresses of the default provisioning branch.
var (
	wildcardV6 = netip.IPv6Unspecified()
	wildcardV4 = netip.AddrFrom4([4]byte{})

	loopbackV6 = netip.IPv6Loopback()
	loopbackV4 = netip.AddrFrom4([4]byte{127, 0, 0, 1})
)

// OpenConfiguredPorts opens every listening socket conf calls for and
// returns them as a [PortSet] awaiting adoption into a [Front].  With both
// address families disabled it returns an empty set and no error.  On error,
// every socket opened so far has been closed.
//
// In the default branch the IPv6 sockets are provisioned strictly before the
// IPv4 ones, so that the operational expectations about return-address
// preference hold.
func OpenConfiguredPorts(ctx context.Context, conf *Config) (set *PortSet, err error) {
	l := conf.Logger
	if l == nil {
		l = slog.Default()
	}

	doTCP := conf.TCP && conf.TCPAcceptConcurrency != 0
	doAuto := conf.InterfaceAutomatic && conf.UDP

	set = &PortSet{}
	if !conf.IPv4 && !conf.IPv6 {
		return set, nil
	}

	if doAuto && (!conf.IPv4 || !conf.IPv6) {
		l.WarnContext(
			ctx,
			"interface-automatic does not work without both ipv4 and ipv6; disabling it",
		)
		doAuto = false
	}

	if doAuto || len(conf.Interfaces) == 0 {
		err = openDefaultPorts(ctx, l, conf, doAuto, doTCP, set)
	} else {
		err = openInterfacePorts(ctx, l, conf, doTCP, set)
	}
	if err != nil {
		_ = set.FreeAll()

		return nil, err
	}

	return set, nil
}

// openDefaultPorts provisions the default branch: one interface per enabled
// family, using the wildcard address in automatic mode and the loopback
// address otherwise.
func openDefaultPorts(
	ctx context.Context,
	l *slog.Logger,
	conf *Config,
	doAuto bool,
	doTCP bool,
	set *PortSet,
) (err error) {
	if conf.IPv6 {
		addr := loopbackV6
		if doAuto {
			addr = wildcardV6
		}

		err = createForInterface(
			ctx,
			l,
			netip.AddrPortFrom(addr, conf.Port),
			doAuto,
			conf.UDP,
			doTCP,
			set,
		)
		if err != nil {
			return fmt.Errorf("provisioning default ipv6 listeners: %w", err)
		}
	}

	if conf.IPv4 {
		addr := loopbackV4
		if doAuto {
			addr = wildcardV4
		}

		err = createForInterface(
			ctx,
			l,
			netip.AddrPortFrom(addr, conf.Port),
			doAuto,
			conf.UDP,
			doTCP,
			set,
		)
		if err != nil {
			return fmt.Errorf("provisioning default ipv4 listeners: %w", err)
		}
	}

	return nil
}

// openInterfacePorts provisions the explicit-interface branch: every
// configured literal address, classified by family, skipping the ones whose
// family is disabled.  Automatic mode is always off here.
func openInterfacePorts(
	ctx context.Context,
	l *slog.Logger,
	conf *Config,
	doTCP bool,
	set *PortSet,
) (err error) {
	for _, ifaceStr := range conf.Interfaces {
		addr, parseErr := netip.ParseAddr(ifaceStr)
		if parseErr != nil {
			return fmt.Errorf("bad interface address %q: %w", ifaceStr, parseErr)
		}

		if addr.Unmap().Is4() {
			if !conf.IPv4 {
				continue
			}
		} else if !conf.IPv6 {
			continue
		}

		err = createForInterface(
			ctx,
			l,
			netip.AddrPortFrom(addr, conf.Port),
			false,
			conf.UDP,
			doTCP,
			set,
		)
		if err != nil {
			return fmt.Errorf("provisioning listeners on %s: %w", addr, err)
		}
	}

	return nil
}
