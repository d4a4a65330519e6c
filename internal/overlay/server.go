// Package overlay serves latency readings to local consumers: a websocket
// push feed for the on-screen overlay, a health endpoint, and Prometheus
// metrics. Rendering stays outside this process.
package overlay

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	pherr "github.com/pinghud/pinghud/internal/errors"
	"github.com/pinghud/pinghud/internal/monitor"
)

// Config configures the overlay HTTP server.
type Config struct {
	// Listen is the bind address. Defaults to a loopback port; the feed is
	// meant for same-host consumers only.
	Listen string
}

// Server hosts the overlay endpoints.
type Server struct {
	cfg      Config
	mon      *monitor.Monitor
	registry *prometheus.Registry
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	srv      *http.Server
}

// NewServer creates an overlay server. registry may be nil to disable the
// metrics endpoint.
func NewServer(cfg Config, mon *monitor.Monitor, registry *prometheus.Registry, logger zerolog.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8471"
	}
	s := &Server{
		cfg:      cfg,
		mon:      mon,
		registry: registry,
		logger:   logger.With().Str("component", "overlay").Logger(),
		upgrader: websocket.Upgrader{
			// Local overlay clients connect from file:// or app shells;
			// the server is loopback-bound, so origins are not checked.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route table, exported for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	s.logger.Info().Str("listen", ln.Addr().String()).Msg("overlay server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleWS streams readings to one client: the latest reading immediately so
// the overlay is never blank, then every published one.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer pherr.DeferClose(s.logger, conn, "websocket close failed")

	readings, unsubscribe := s.mon.Subscribe(8)
	defer unsubscribe()

	if err := conn.WriteJSON(s.mon.Last()); err != nil {
		return
	}

	// Drain the client side so closes are noticed; the feed is write-only.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case reading, ok := <-readings:
			if !ok {
				return
			}
			if err := conn.WriteJSON(reading); err != nil {
				return
			}
		}
	}
}
