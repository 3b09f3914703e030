// Package netutil contains the platform socket plumbing used by the listener
// provisioning code: listen configurations that apply the required socket
// options, and UDP ancillary-data helpers for source-address delivery.
package netutil

// V6Only is the policy of applying the IPV6_V6ONLY socket option to an IPv6
// listening socket.
type V6Only uint8

// V6Only policy values.
const (
	// V6OnlyUnset leaves the system default untouched.
	V6OnlyUnset V6Only = iota

	// V6OnlyEnforce restricts the socket to IPv6 traffic only.
	V6OnlyEnforce

	// V6OnlyDisable explicitly clears the option, allowing IPv4-mapped
	// addresses even where the system default enables it.
	V6OnlyDisable
)

// String implements the [fmt.Stringer] interface for V6Only.
func (v V6Only) String() (s string) {
	switch v {
	case V6OnlyUnset:
		return "unset"
	case V6OnlyEnforce:
		return "enforce"
	case V6OnlyDisable:
		return "disable"
	default:
		return "invalid"
	}
}

// optResult is the outcome of applying a platform-conditional socket option.
type optResult uint8

const (
	// optApplied means the option has been set successfully.
	optApplied optResult = iota

	// optUnsupported means the platform has no such option; the caller
	// decides whether that is tolerable.
	optUnsupported

	// optFailed means the platform has the option, but setting it failed.
	optFailed
)
