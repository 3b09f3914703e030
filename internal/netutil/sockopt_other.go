//go:build unix && !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package netutil

// setIPv6MinMTU reports that the platform has no minimum-MTU socket option.
func setIPv6MinMTU(_ uintptr) (res optResult, err error) {
	return optUnsupported, nil
}
