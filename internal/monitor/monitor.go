// Package monitor drives the periodic latency refresh cycle.
//
// One cycle: resolve the game and booster pids, snapshot their TCP
// connections, request fresh probes for every remote endpoint, classify,
// select a representative sample, fold it into the sliding window, and
// publish a Reading. The cycle itself never performs a blocking network
// call; it reads cached probe results and requests fresh ones.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pinghud/pinghud/internal/classify"
	"github.com/pinghud/pinghud/internal/latency"
	"github.com/pinghud/pinghud/internal/netsnap"
	"github.com/pinghud/pinghud/internal/probe"
	"github.com/pinghud/pinghud/internal/procinfo"
)

// Config configures the refresh driver.
type Config struct {
	GameProcess     string
	BoosterProcess  string
	ProxyLabel      string
	Interval        time.Duration
	WindowRetention time.Duration
	ProxyFloorMs    float64
}

// Recorder receives every published reading. The Prometheus collector is the
// production implementation.
type Recorder interface {
	Observe(Reading)
}

// Monitor owns the per-cycle pipeline state. All cycle state (window, carried
// value) is touched only by the Run goroutine; subscribers get copies.
type Monitor struct {
	cfg        Config
	source     netsnap.Source
	resolver   procinfo.Resolver
	sched      *probe.Scheduler
	classifier *classify.Classifier
	selector   *latency.Selector
	window     *latency.Window
	recorder   Recorder
	logger     zerolog.Logger
	session    string

	lastKnown *float64

	mu   sync.RWMutex
	last Reading
	subs map[int]chan Reading
	next int
}

// New creates a monitor. recorder may be nil.
func New(cfg Config, source netsnap.Source, resolver procinfo.Resolver, sched *probe.Scheduler, recorder Recorder, logger zerolog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}

	session := uuid.NewString()
	m := &Monitor{
		cfg:        cfg,
		source:     source,
		resolver:   resolver,
		sched:      sched,
		classifier: classify.NewClassifier(sched, cfg.ProxyLabel),
		selector:   latency.NewSelector(cfg.ProxyLabel, cfg.ProxyFloorMs),
		window:     latency.NewWindow(cfg.WindowRetention),
		recorder:   recorder,
		logger:     logger.With().Str("component", "monitor").Str("session", session).Logger(),
		session:    session,
		subs:       make(map[int]chan Reading),
	}
	m.last = Reading{SessionID: session, Source: latency.SourceNone}
	return m
}

// Run drives refresh cycles until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info().
		Str("game_process", m.cfg.GameProcess).
		Str("booster_process", m.cfg.BoosterProcess).
		Dur("interval", m.cfg.Interval).
		Msg("starting latency monitor")

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// First cycle immediately so consumers are not blind for one interval.
	m.refresh(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("stopping latency monitor")
			return ctx.Err()
		case now := <-ticker.C:
			m.refresh(ctx, now)
		}
	}
}

// Last returns the most recently published reading.
func (m *Monitor) Last() Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Subscribe registers a reading channel. Slow subscribers miss readings
// rather than stalling the pipeline. The returned function unsubscribes.
func (m *Monitor) Subscribe(buffer int) (<-chan Reading, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Reading, buffer)

	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
		m.mu.Unlock()
	}
}

// refresh runs one cycle and returns the published reading.
func (m *Monitor) refresh(ctx context.Context, now time.Time) Reading {
	gamePID, gameStatus := m.resolver.FindPID(ctx, m.cfg.GameProcess)
	boosterPID, _ := m.resolver.FindPID(ctx, m.cfg.BoosterProcess)
	proxyActive := boosterPID != 0

	gameSnaps := m.snapshot(ctx, gamePID)
	var boosterSnaps []netsnap.ConnectionSnapshot
	if proxyActive {
		boosterSnaps = m.snapshot(ctx, boosterPID)
	}

	for _, s := range gameSnaps {
		m.sched.EnsureFresh(s.Remote())
	}
	for _, s := range boosterSnaps {
		m.sched.EnsureFresh(s.Remote())
	}

	// Classification always precedes selection within a cycle. Booster
	// connections keep their literal remotes; the external-hop tier needs
	// them unlabeled.
	gameConns := m.classifier.Classify(gameSnaps, proxyActive)
	boosterConns := m.classifier.Classify(boosterSnaps, false)

	value, source := m.selector.Select(gameConns, boosterConns, proxyActive, m.lastKnown)
	if value != nil {
		m.lastKnown = value
		if source != latency.SourceCarry {
			// Carried values are not new observations; only fresh
			// selections extend the window.
			m.window.Record(*value, now)
		}
	}

	reading := Reading{
		SessionID:   m.session,
		At:          now,
		CurrentMs:   value,
		Source:      source,
		ProxyActive: proxyActive,
		GameRunning: gameStatus == procinfo.StatusRunning,
		GamePID:     gamePID,
		Connections: gameConns,
	}
	if low, ok := m.window.Low(now); ok {
		reading.LowMs = &low
	}
	if peak, ok := m.window.Peak(now); ok {
		reading.PeakMs = &peak
	}

	m.publish(reading)
	return reading
}

// snapshot swallows collaborator failures to "no connections this cycle".
func (m *Monitor) snapshot(ctx context.Context, pid int32) []netsnap.ConnectionSnapshot {
	if pid == 0 {
		return nil
	}
	snaps, err := m.source.Snapshot(ctx, pid)
	if err != nil {
		m.logger.Debug().Err(err).Int32("pid", pid).Msg("connection snapshot failed")
		return nil
	}
	return snaps
}

func (m *Monitor) publish(r Reading) {
	if m.recorder != nil {
		m.recorder.Observe(r)
	}

	m.mu.Lock()
	m.last = r
	for _, ch := range m.subs {
		select {
		case ch <- r:
		default:
		}
	}
	m.mu.Unlock()

	evt := m.logger.Debug().Str("source", string(r.Source)).Bool("proxy_active", r.ProxyActive)
	if r.CurrentMs != nil {
		evt = evt.Float64("current_ms", *r.CurrentMs)
	}
	evt.Int("connections", len(r.Connections)).Msg("refresh cycle complete")
}
