package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pinghud/pinghud/internal/config"
	pherr "github.com/pinghud/pinghud/internal/errors"
	"github.com/pinghud/pinghud/internal/logging"
	"github.com/pinghud/pinghud/internal/metrics"
	"github.com/pinghud/pinghud/internal/monitor"
	"github.com/pinghud/pinghud/internal/netsnap"
	"github.com/pinghud/pinghud/internal/overlay"
	"github.com/pinghud/pinghud/internal/probe"
	"github.com/pinghud/pinghud/internal/procinfo"
)

func newRunCmd() *cobra.Command {
	var (
		configFile     string
		gameProcess    string
		boosterProcess string
		listen         string
		logLevel       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the latency monitor daemon",
		Long: `Run the latency monitor until interrupted.

Configuration sources (in order of precedence):
1. Command-line flags
2. Environment variables (PINGHUD_*)
3. Config file (--config flag or ~/.pinghud/config.yaml)
4. Defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if gameProcess != "" {
				cfg.Monitor.GameProcess = gameProcess
			}
			if boosterProcess != "" {
				cfg.Monitor.BoosterProcess = boosterProcess
			}
			if listen != "" {
				cfg.Overlay.Listen = listen
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&gameProcess, "game", "", "game process executable name")
	cmd.Flags().StringVar(&boosterProcess, "booster", "", "network booster executable name")
	cmd.Flags().StringVar(&listen, "listen", "", "overlay listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func runDaemon(parent context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := probe.NewCache(cfg.Probe.CacheTTL)
	sched := probe.NewScheduler(
		probe.SchedulerConfig{Workers: cfg.Probe.Workers, QueueSize: cfg.Probe.QueueSize},
		cache,
		probe.TCPProber{Timeout: cfg.Probe.Timeout},
		logger,
	)
	defer func() {
		// Bounded drain: queued probes are dropped, in-flight ones get
		// one probe-timeout's worth of grace.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Probe.Timeout+time.Second)
		defer cancel()
		if err := sched.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("probe scheduler shutdown timed out")
		}
	}()

	collector := metrics.NewCollector(sched.Snapshot)
	registry := prometheus.NewRegistry()
	pherr.Must(registry.Register(collector), "register metrics collector")

	mon := monitor.New(
		monitor.Config{
			GameProcess:     cfg.Monitor.GameProcess,
			BoosterProcess:  cfg.Monitor.BoosterProcess,
			ProxyLabel:      cfg.Monitor.ProxyLabel,
			Interval:        cfg.Monitor.Interval,
			WindowRetention: cfg.Monitor.WindowRetention,
			ProxyFloorMs:    cfg.Monitor.ProxyFloorMs,
		},
		netsnap.PSUtilSource{},
		procinfo.PSUtilResolver{},
		sched,
		collector,
		logger,
	)

	errCh := make(chan error, 1)
	if cfg.Overlay.Enabled {
		srv := overlay.NewServer(overlay.Config{Listen: cfg.Overlay.Listen}, mon, registry, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- mon.Run(ctx)
	}()

	select {
	case err := <-errCh:
		stop()
		<-runErr
		return err
	case err := <-runErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
