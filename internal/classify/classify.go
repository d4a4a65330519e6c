// Package classify labels raw connection snapshots for display and latency
// selection, folding local tunnel hops into the booster's identity.
//
// When a network booster (ExitLag-style tunnel) is active, the real game
// traffic is invisible to the OS; only the loopback leg into the tunnel is
// observable. Classification presents that leg as the game server so its
// latency can stand in until better information exists. The substitution is
// display-only: the underlying snapshot, and the endpoint a latency was
// measured against, are never rewritten.
package classify

import (
	"github.com/pinghud/pinghud/internal/netsnap"
	"github.com/pinghud/pinghud/internal/probe"
)

// loopbackForms are the remote address spellings that indicate a local hop.
var loopbackForms = map[string]bool{
	"127.0.0.1": true,
	"::1":       true,
	"localhost": true,
}

// webPorts are remote ports a client talks to for DNS/HTTP/TLS. A loopback
// connection to one of these is never a tunnel hop.
var webPorts = map[int]bool{
	53:  true,
	80:  true,
	443: true,
}

// IsLoopback reports whether addr is a loopback form.
func IsLoopback(addr string) bool {
	return loopbackForms[addr]
}

// IsWebPort reports whether port is one of the well-known non-game ports.
func IsWebPort(port int) bool {
	return webPorts[port]
}

// IsTunnelHop reports whether a connection to addr:port looks like the local
// leg of a booster tunnel: loopback remote, and not a well-known web port.
// The rule is intentionally narrow to the known game client + booster pair;
// a legitimate local service on a high port will match it too.
func IsTunnelHop(addr string, port int) bool {
	return IsLoopback(addr) && !IsWebPort(port)
}

// Connection is a snapshot annotated for display and selection.
type Connection struct {
	netsnap.ConnectionSnapshot

	// EffectiveRemote is the literal remote address, or the booster label
	// when the connection was judged a tunnel hop.
	EffectiveRemote string `json:"effective_remote"`

	// Service is the resolved service name, e.g. "Game Server".
	Service string `json:"service"`

	// LatencyMs is the last successful probe against the remote endpoint,
	// if any.
	LatencyMs *float64 `json:"latency_ms,omitempty"`
}

// LatencySource supplies the last known probe latency for an endpoint.
// The probe scheduler is the production implementation.
type LatencySource interface {
	CachedLatency(ep probe.Endpoint) (float64, bool)
}

// Classifier annotates connection snapshots. proxyLabel is the display
// identity used for tunnel hops.
type Classifier struct {
	latency    LatencySource
	proxyLabel string
}

// NewClassifier creates a classifier. latency may be nil, in which case no
// latency values are attached.
func NewClassifier(latency LatencySource, proxyLabel string) *Classifier {
	return &Classifier{latency: latency, proxyLabel: proxyLabel}
}

// Classify converts established snapshots into annotated connections. When
// proxyActive is true, loopback connections on non-web ports are presented as
// the booster carrying game traffic. Classification is a pure function of the
// snapshot, so re-classifying an already-labeled connection's snapshot is a
// stable fixed point.
func (c *Classifier) Classify(snaps []netsnap.ConnectionSnapshot, proxyActive bool) []Connection {
	out := make([]Connection, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Established() {
			continue
		}

		conn := Connection{
			ConnectionSnapshot: snap,
			EffectiveRemote:    snap.RemoteAddr,
			Service:            ServiceName(snap.RemotePort),
		}
		if proxyActive && IsTunnelHop(snap.RemoteAddr, snap.RemotePort) {
			conn.EffectiveRemote = c.proxyLabel
			conn.Service = GameServerLabel
		}
		if c.latency != nil {
			if ms, ok := c.latency.CachedLatency(snap.Remote()); ok {
				v := ms
				conn.LatencyMs = &v
			}
		}
		out = append(out, conn)
	}
	return out
}
