// Package probe implements asynchronous TCP connect-latency probing with a
// time-boxed result cache and in-flight deduplication.
//
// Probes are one-shot: a TCP connection is opened, timed, and closed without
// sending or reading any payload. Callers never wait on the network; they
// request freshness with Scheduler.EnsureFresh and read whatever the cache
// currently holds.
package probe

import (
	"net"
	"strconv"
)

// Endpoint identifies a remote address/port pair. It is the cache and dedup
// key, so it must remain a comparable value type.
type Endpoint struct {
	Addr string
	Port int
}

// String renders the endpoint in dialable host:port form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Addr, strconv.Itoa(e.Port))
}
