package probe

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultWorkers is the fixed probe pool size. Excess requests queue
	// instead of spawning more outbound connection attempts.
	DefaultWorkers = 8

	// DefaultQueueSize bounds the number of queued-but-not-started probes.
	// Requests beyond it are dropped and retried on a later refresh cycle.
	DefaultQueueSize = 256
)

// SchedulerConfig configures the probe worker pool.
type SchedulerConfig struct {
	Workers   int
	QueueSize int
}

// DefaultSchedulerConfig returns the default pool sizing.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:   DefaultWorkers,
		QueueSize: DefaultQueueSize,
	}
}

// Stats is a point-in-time snapshot of scheduler activity counters.
type Stats struct {
	Scheduled uint64
	Completed uint64
	Failed    uint64
	InFlight  int
}

// Scheduler runs one-shot latency probes on a fixed worker pool, deduplicating
// in-flight requests per endpoint and writing results back into the cache.
// Its lifetime is owned by the caller: construct at startup, Shutdown on exit.
type Scheduler struct {
	cache  *Cache
	prober Prober
	logger zerolog.Logger

	mu       sync.Mutex
	inflight map[Endpoint]struct{}
	stats    Stats

	queue        chan Endpoint
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewScheduler creates a scheduler writing into cache and starts its workers.
func NewScheduler(cfg SchedulerConfig, cache *Cache, prober Prober, logger zerolog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cache:    cache,
		prober:   prober,
		logger:   logger.With().Str("component", "probe_scheduler").Logger(),
		inflight: make(map[Endpoint]struct{}),
		queue:    make(chan Endpoint, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// EnsureFresh requests a probe for ep when the cached measurement is absent
// or stale. It never blocks: when ep is already being probed, the cache is
// fresh, or the queue is full, the call is a no-op.
func (s *Scheduler) EnsureFresh(ep Endpoint) {
	if s.ctx.Err() != nil {
		return
	}
	if _, stale, ok := s.cache.Get(ep, time.Now()); ok && !stale {
		return
	}

	s.mu.Lock()
	if _, busy := s.inflight[ep]; busy {
		s.mu.Unlock()
		return
	}
	s.inflight[ep] = struct{}{}
	s.stats.Scheduled++
	s.mu.Unlock()

	select {
	case s.queue <- ep:
	default:
		// Queue full. Drop the request so the caller never blocks; the
		// endpoint is picked up again on a later cycle.
		s.clearInflight(ep)
	}
}

// CachedLatency returns the last successful measurement for ep, if any.
func (s *Scheduler) CachedLatency(ep Endpoint) (float64, bool) {
	latency, _, ok := s.cache.Get(ep, time.Now())
	if !ok || latency == nil {
		return 0, false
	}
	return *latency, true
}

// InFlight returns the number of endpoints currently being probed or queued.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Snapshot returns the current activity counters.
func (s *Scheduler) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.InFlight = len(s.inflight)
	return st
}

// Shutdown stops the pool. Queued-but-not-started probes are discarded and
// in-flight ones are waited for until ctx expires. Safe to call more than
// once; only the first call does anything.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		s.logger.Debug().Err(err).Msg("probe scheduler stopped")
	})
	return err
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ep := <-s.queue:
			s.probe(ep)
		}
	}
}

func (s *Scheduler) probe(ep Endpoint) {
	// The in-flight mark must come off no matter how the probe ends.
	defer s.clearInflight(ep)

	latency, err := s.prober.Probe(s.ctx, ep)
	now := time.Now()
	if err != nil {
		s.cache.Put(ep, nil, now)
		s.mu.Lock()
		s.stats.Completed++
		s.stats.Failed++
		s.mu.Unlock()
		s.logger.Debug().Stringer("endpoint", ep).Err(err).Msg("probe failed")
		return
	}

	s.cache.Put(ep, &latency, now)
	s.mu.Lock()
	s.stats.Completed++
	s.mu.Unlock()
	s.logger.Debug().Stringer("endpoint", ep).Float64("latency_ms", latency).Msg("probe completed")
}

func (s *Scheduler) clearInflight(ep Endpoint) {
	s.mu.Lock()
	delete(s.inflight, ep)
	s.mu.Unlock()
}
