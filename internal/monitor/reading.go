package monitor

import (
	"time"

	"github.com/pinghud/pinghud/internal/classify"
	"github.com/pinghud/pinghud/internal/latency"
)

// Reading is the per-cycle output handed to consumers: the overlay feed, the
// metrics recorder, and logs. Current follows the selection (including
// carried values); Low and Peak derive from the sliding window of fresh
// samples only.
type Reading struct {
	SessionID   string                `json:"session_id"`
	At          time.Time             `json:"at"`
	CurrentMs   *float64              `json:"current_ms,omitempty"`
	LowMs       *float64              `json:"low_ms,omitempty"`
	PeakMs      *float64              `json:"peak_ms,omitempty"`
	Source      latency.Source        `json:"source"`
	ProxyActive bool                  `json:"proxy_active"`
	GameRunning bool                  `json:"game_running"`
	GamePID     int32                 `json:"game_pid,omitempty"`
	Connections []classify.Connection `json:"connections"`
}
