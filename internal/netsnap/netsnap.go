// Package netsnap captures point-in-time views of the TCP connections owned
// by a process. It is the boundary between the latency pipeline and the OS
// connection table; enumeration failures never propagate past the monitor,
// they degrade to "no connections this cycle".
package netsnap

import (
	"context"
	"fmt"

	psnet "github.com/shirou/gopsutil/v4/net"

	"github.com/pinghud/pinghud/internal/probe"
)

// StatusEstablished is the connection state the pipeline considers.
const StatusEstablished = "ESTABLISHED"

// ConnectionSnapshot is one TCP connection as reported by the OS.
type ConnectionSnapshot struct {
	PID        int32  `json:"pid"`
	LocalAddr  string `json:"local_addr"`
	LocalPort  int    `json:"local_port"`
	RemoteAddr string `json:"remote_addr"`
	RemotePort int    `json:"remote_port"`
	Status     string `json:"status"`
}

// Established reports whether the snapshot denotes a live TCP connection.
func (s ConnectionSnapshot) Established() bool {
	return s.Status == StatusEstablished
}

// Remote returns the connection's remote endpoint as a probe key.
func (s ConnectionSnapshot) Remote() probe.Endpoint {
	return probe.Endpoint{Addr: s.RemoteAddr, Port: s.RemotePort}
}

// Source enumerates TCP connections for a process id. Implementations may
// return an empty slice when the process is gone or inaccessible.
type Source interface {
	Snapshot(ctx context.Context, pid int32) ([]ConnectionSnapshot, error)
}

// PSUtilSource reads the OS connection table via gopsutil.
type PSUtilSource struct{}

// Snapshot returns the established TCP connections owned by pid. Entries
// without a local or remote address are skipped.
func (PSUtilSource) Snapshot(ctx context.Context, pid int32) ([]ConnectionSnapshot, error) {
	stats, err := psnet.ConnectionsPidWithContext(ctx, "tcp", pid)
	if err != nil {
		return nil, fmt.Errorf("list connections for pid %d: %w", pid, err)
	}

	out := make([]ConnectionSnapshot, 0, len(stats))
	for _, st := range stats {
		if st.Status != StatusEstablished {
			continue
		}
		if st.Laddr.IP == "" || st.Raddr.IP == "" {
			continue
		}
		out = append(out, ConnectionSnapshot{
			PID:        st.Pid,
			LocalAddr:  st.Laddr.IP,
			LocalPort:  int(st.Laddr.Port),
			RemoteAddr: st.Raddr.IP,
			RemotePort: int(st.Raddr.Port),
			Status:     st.Status,
		})
	}
	return out, nil
}
