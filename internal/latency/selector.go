// Package latency turns classified connections into a single stable latency
// reading: a per-cycle selection with a documented priority order, and a
// sliding window deriving current/low/peak values.
package latency

import (
	"sort"

	"github.com/pinghud/pinghud/internal/classify"
)

// Source identifies which candidate tier produced a reading. It is part of
// the selection contract, not incidental logging; consumers and tests key on
// it.
type Source string

const (
	// SourceBoosterExternal: samples from the booster process's own
	// upstream connections. The most trustworthy signal while a tunnel is
	// active, since it measures the real external hop directly.
	SourceBoosterExternal Source = "exitlagProcessExternal"

	// SourceDirect: the game process talks to a real remote game server.
	SourceDirect Source = "direct"

	// SourceProxyFiltered: loopback tunnel-leg samples with near-zero
	// noise filtered out. Used only while the booster is running.
	SourceProxyFiltered Source = "proxyFiltered"

	// SourceProxy: unfiltered tunnel-leg samples. Used only when no
	// booster runs; near-zero values are then legitimate local servers.
	SourceProxy Source = "proxy"

	// SourceCarry: no candidate this cycle, previous value reused.
	SourceCarry Source = "carry"

	// SourceNone: no candidate and nothing to carry.
	SourceNone Source = "none"
)

// DefaultProxyFloorMs discards sub-floor samples from proxy-labeled
// connections while a booster is active. Loopback connect times that low
// measure the local hop, not the real path.
const DefaultProxyFloorMs = 5.0

// Selector picks the single most representative latency sample per refresh
// cycle.
type Selector struct {
	proxyLabel string
	floorMs    float64
}

// NewSelector creates a selector. A non-positive floorMs falls back to
// DefaultProxyFloorMs.
func NewSelector(proxyLabel string, floorMs float64) *Selector {
	if floorMs <= 0 {
		floorMs = DefaultProxyFloorMs
	}
	return &Selector{proxyLabel: proxyLabel, floorMs: floorMs}
}

// Select applies the candidate tiers in priority order and returns the first
// non-empty tier's median, together with the tier tag. Ties within a tier are
// broken by median, not mean, to resist single-outlier skew. When every tier
// is empty the previous cycle's value is carried, and failing that the result
// is (nil, SourceNone).
func (s *Selector) Select(game, booster []classify.Connection, proxyActive bool, lastKnownMs *float64) (*float64, Source) {
	if proxyActive {
		if v, ok := median(boosterExternal(booster)); ok {
			return &v, SourceBoosterExternal
		}
	}

	if v, ok := median(s.direct(game)); ok {
		return &v, SourceDirect
	}

	if proxyActive {
		if v, ok := median(s.proxySamples(game, s.floorMs)); ok {
			return &v, SourceProxyFiltered
		}
	} else {
		if v, ok := median(s.proxySamples(game, 0)); ok {
			return &v, SourceProxy
		}
	}

	if lastKnownMs != nil {
		v := *lastKnownMs
		return &v, SourceCarry
	}
	return nil, SourceNone
}

// boosterExternal gathers samples from the booster process's own upstream
// connections: non-loopback remotes off the web ports, falling back to any
// non-loopback remote when that set is empty.
func boosterExternal(conns []classify.Connection) []float64 {
	var strict, loose []float64
	for _, c := range conns {
		if c.LatencyMs == nil || classify.IsLoopback(c.RemoteAddr) {
			continue
		}
		loose = append(loose, *c.LatencyMs)
		if !classify.IsWebPort(c.RemotePort) {
			strict = append(strict, *c.LatencyMs)
		}
	}
	if len(strict) > 0 {
		return strict
	}
	return loose
}

// direct gathers game-server samples whose remote is a real address rather
// than the booster label.
func (s *Selector) direct(conns []classify.Connection) []float64 {
	var out []float64
	for _, c := range conns {
		if c.LatencyMs == nil || !classify.IsGameService(c.Service) {
			continue
		}
		if c.EffectiveRemote == s.proxyLabel {
			continue
		}
		out = append(out, *c.LatencyMs)
	}
	return out
}

// proxySamples gathers samples from connections relabeled to the booster,
// keeping only those at or above floorMs.
func (s *Selector) proxySamples(conns []classify.Connection, floorMs float64) []float64 {
	var out []float64
	for _, c := range conns {
		if c.LatencyMs == nil || !classify.IsGameService(c.Service) {
			continue
		}
		if c.EffectiveRemote != s.proxyLabel {
			continue
		}
		if *c.LatencyMs < floorMs {
			continue
		}
		out = append(out, *c.LatencyMs)
	}
	return out
}

// median returns the middle sample; for even-sized sets, the mean of the two
// middles.
func median(samples []float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
