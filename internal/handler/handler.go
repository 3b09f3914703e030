// Package handler contains the trivial query handlers of the dnslisten
// daemon.  The real query processing of a DNS server lives downstream of the
// listening endpoints and is out of scope here, so the daemon answers with a
// fixed response code.
package handler

import (
	"context"
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/fcchbjm/dnslisten/listen"
	"github.com/miekg/dns"
)

// Static is a [listen.Handler] that answers every well-formed query with an
// empty response carrying the configured response code.  Malformed queries
// are dropped.
type Static struct {
	logger *slog.Logger
	rcode  int
}

// type check
var _ listen.Handler = (*Static)(nil)

// NewStatic returns a new static handler answering with rcode, e.g.
// [dns.RcodeRefused].  l must not be nil.
func NewStatic(l *slog.Logger, rcode int) (h *Static) {
	return &Static{
		logger: l,
		rcode:  rcode,
	}
}

// Handle implements the [listen.Handler] interface for *Static.
func (h *Static) Handle(_ context.Context, q *listen.Query) (resp []byte) {
	req := &dns.Msg{}
	err := req.Unpack(q.Data)
	if err != nil {
		h.logger.Debug("unpacking query", "raddr", q.RemoteAddr, slogutil.KeyError, err)

		return nil
	}

	msg := (&dns.Msg{}).SetRcode(req, h.rcode)
	resp, err = msg.Pack()
	if err != nil {
		h.logger.Debug("packing response", "raddr", q.RemoteAddr, slogutil.KeyError, err)

		return nil
	}

	return resp
}
