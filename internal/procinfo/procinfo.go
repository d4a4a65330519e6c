// Package procinfo resolves monitored processes by executable name.
package procinfo

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// Status describes whether a monitored process is currently running.
type Status string

const (
	StatusRunning    Status = "running"
	StatusNotRunning Status = "not_running"
	StatusUnknown    Status = "unknown"
)

// Resolver finds the process id for an executable name.
type Resolver interface {
	FindPID(ctx context.Context, name string) (int32, Status)
}

// PSUtilResolver scans the process table via gopsutil. Name comparison is
// case-insensitive to match Windows executable naming.
type PSUtilResolver struct{}

// FindPID returns the pid of the first process whose name matches, or 0 with
// StatusNotRunning. Enumeration failures yield StatusUnknown.
func (PSUtilResolver) FindPID(ctx context.Context, name string) (int32, Status) {
	if name == "" {
		return 0, StatusNotRunning
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, StatusUnknown
	}

	for _, p := range procs {
		pname, err := p.NameWithContext(ctx)
		if err != nil {
			// Processes can exit or deny access mid-scan.
			continue
		}
		if strings.EqualFold(pname, name) {
			return p.Pid, StatusRunning
		}
	}
	return 0, StatusNotRunning
}
