package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber counts calls and optionally blocks until released.
type fakeProber struct {
	mu      sync.Mutex
	calls   []Endpoint
	release chan struct{}
	latency float64
	err     error
}

func (f *fakeProber) Probe(ctx context.Context, ep Endpoint) (float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ep)
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.latency, nil
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestScheduler(t *testing.T, cache *Cache, prober Prober) *Scheduler {
	t.Helper()
	s := NewScheduler(SchedulerConfig{Workers: 1, QueueSize: 8}, cache, prober, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestScheduler_DeduplicatesInFlightProbes(t *testing.T) {
	cache := NewCache(10 * time.Second)
	prober := &fakeProber{latency: 42.0, release: make(chan struct{})}
	s := newTestScheduler(t, cache, prober)

	ep := Endpoint{Addr: "10.0.0.5", Port: 8888}
	s.EnsureFresh(ep)

	// Wait until the worker is inside the probe, then request again.
	require.Eventually(t, func() bool { return prober.callCount() == 1 }, time.Second, time.Millisecond)
	s.EnsureFresh(ep)
	s.EnsureFresh(ep)

	close(prober.release)
	require.Eventually(t, func() bool { return s.InFlight() == 0 }, time.Second, time.Millisecond)

	assert.Equal(t, 1, prober.callCount())

	latency, _, ok := cache.Get(ep, time.Now())
	require.True(t, ok)
	require.NotNil(t, latency)
	assert.Equal(t, 42.0, *latency)
}

func TestScheduler_ClearsInFlightOnFailure(t *testing.T) {
	cache := NewCache(10 * time.Second)
	prober := &fakeProber{err: errors.New("connection refused")}
	s := newTestScheduler(t, cache, prober)

	ep := Endpoint{Addr: "203.0.113.9", Port: 9999}
	s.EnsureFresh(ep)

	require.Eventually(t, func() bool { return s.InFlight() == 0 }, time.Second, time.Millisecond)

	// The failure is cached as "unreachable", not dropped.
	latency, stale, ok := cache.Get(ep, time.Now())
	assert.True(t, ok)
	assert.Nil(t, latency)
	assert.False(t, stale)

	st := s.Snapshot()
	assert.Equal(t, uint64(1), st.Scheduled)
	assert.Equal(t, uint64(1), st.Completed)
	assert.Equal(t, uint64(1), st.Failed)
}

func TestScheduler_FreshCacheSkipsProbe(t *testing.T) {
	cache := NewCache(10 * time.Second)
	v := 30.0
	ep := Endpoint{Addr: "10.0.0.5", Port: 8888}
	cache.Put(ep, &v, time.Now())

	prober := &fakeProber{latency: 99.0}
	s := newTestScheduler(t, cache, prober)

	s.EnsureFresh(ep)
	assert.Equal(t, 0, s.InFlight())
	assert.Equal(t, 0, prober.callCount())
}

func TestScheduler_StaleCacheReprobes(t *testing.T) {
	cache := NewCache(10 * time.Second)
	v := 30.0
	ep := Endpoint{Addr: "10.0.0.5", Port: 8888}
	cache.Put(ep, &v, time.Now().Add(-time.Minute))

	prober := &fakeProber{latency: 99.0}
	s := newTestScheduler(t, cache, prober)

	s.EnsureFresh(ep)
	require.Eventually(t, func() bool {
		latency, _, ok := cache.Get(ep, time.Now())
		return ok && latency != nil && *latency == 99.0
	}, time.Second, time.Millisecond)
}

func TestScheduler_CachedLatency(t *testing.T) {
	cache := NewCache(10 * time.Second)
	prober := &fakeProber{}
	s := newTestScheduler(t, cache, prober)

	ep := Endpoint{Addr: "10.0.0.5", Port: 8888}
	_, ok := s.CachedLatency(ep)
	assert.False(t, ok)

	cache.Put(ep, nil, time.Now())
	_, ok = s.CachedLatency(ep)
	assert.False(t, ok, "failed probes have no usable latency")

	v := 42.0
	cache.Put(ep, &v, time.Now())
	got, ok := s.CachedLatency(ep)
	require.True(t, ok)
	assert.Equal(t, 42.0, got)
}

func TestScheduler_ShutdownIsIdempotent(t *testing.T) {
	cache := NewCache(10 * time.Second)
	s := NewScheduler(SchedulerConfig{}, cache, &fakeProber{}, zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, s.Shutdown(ctx))

	// Requests after shutdown are no-ops.
	s.EnsureFresh(Endpoint{Addr: "10.0.0.5", Port: 8888})
	assert.Equal(t, 0, s.InFlight())
}

func TestScheduler_ShutdownUnblocksSlowProbe(t *testing.T) {
	cache := NewCache(10 * time.Second)
	prober := &fakeProber{release: make(chan struct{})} // never released
	s := NewScheduler(SchedulerConfig{Workers: 1, QueueSize: 8}, cache, prober, zerolog.Nop())

	s.EnsureFresh(Endpoint{Addr: "10.0.0.5", Port: 8888})
	require.Eventually(t, func() bool { return prober.callCount() == 1 }, time.Second, time.Millisecond)

	// Cancellation reaches the prober through its context.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
