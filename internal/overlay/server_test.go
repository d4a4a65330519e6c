package overlay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinghud/pinghud/internal/latency"
	"github.com/pinghud/pinghud/internal/metrics"
	"github.com/pinghud/pinghud/internal/monitor"
	"github.com/pinghud/pinghud/internal/netsnap"
	"github.com/pinghud/pinghud/internal/probe"
	"github.com/pinghud/pinghud/internal/procinfo"
)

type idleResolver struct{}

func (idleResolver) FindPID(context.Context, string) (int32, procinfo.Status) {
	return 0, procinfo.StatusNotRunning
}

type idleSource struct{}

func (idleSource) Snapshot(context.Context, int32) ([]netsnap.ConnectionSnapshot, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cache := probe.NewCache(time.Minute)
	sched := probe.NewScheduler(probe.SchedulerConfig{Workers: 1, QueueSize: 8}, cache, probe.TCPProber{}, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = sched.Shutdown(ctx)
	})

	mon := monitor.New(monitor.Config{
		GameProcess:    "game.exe",
		BoosterProcess: "booster.exe",
		ProxyLabel:     "ExitLag",
	}, idleSource{}, idleResolver{}, sched, nil, zerolog.Nop())

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(metrics.NewCollector(sched.Snapshot)))

	return NewServer(Config{}, mon, registry, zerolog.Nop())
}

func TestServer_Healthz(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestServer_Metrics(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pinghud_info")
}

func TestServer_WebsocketSendsLatestReadingFirst(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var reading monitor.Reading
	require.NoError(t, conn.ReadJSON(&reading))
	assert.Equal(t, latency.SourceNone, reading.Source)
	assert.NotEmpty(t, reading.SessionID)
}
