//go:build unix

package netev

// waitReadable blocks until a datagram is queued on the socket, without
// consuming anything.  It honors the read deadline, so pause kicks and
// closing the socket interrupt it the same way they interrupt a read.
func (e *udpEndpoint) waitReadable() (err error) {
	first := true

	return e.rconn.Read(func(_ uintptr) (done bool) {
		// The raw Read calls the function once before waiting for
		// readiness, so skip the first call to force an actual wait.
		if first {
			first = false

			return false
		}

		return true
	})
}
