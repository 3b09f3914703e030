//go:build windows

package netutil

import "syscall"

// control is a no-op on Windows.  The Go runtime already configures the
// listening socket appropriately there, and neither SO_REUSEADDR with the
// Unix semantics nor the IPv6 minimum-MTU option is available.
func (ctrl listenControl) control(_, _ string, _ syscall.RawConn) (err error) {
	return nil
}
