package probe

import (
	"context"
	"net"
	"time"
)

// DefaultTimeout bounds a single connect attempt. It is deliberately tighter
// than the monitor's refresh cadence so a dead endpoint never stalls a cycle.
const DefaultTimeout = 200 * time.Millisecond

// Prober times a single connection attempt against an endpoint.
// Implementations must respect context cancellation.
type Prober interface {
	Probe(ctx context.Context, ep Endpoint) (latencyMs float64, err error)
}

// TCPProber measures TCP connect time. No payload is sent or read; the
// connection is closed as soon as the handshake completes.
type TCPProber struct {
	// Timeout caps the connect attempt. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Probe dials ep and returns the wall-clock connect time in milliseconds.
func (p TCPProber) Probe(ctx context.Context, ep Endpoint) (float64, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", ep.String())
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	_ = conn.Close()

	return float64(elapsed) / float64(time.Millisecond), nil
}
