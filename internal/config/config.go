// Package config provides configuration loading for pinghud.
//
// Sources, in order of precedence: PINGHUD_* environment variables, the
// config file (~/.pinghud/config.yaml by default), built-in defaults. The
// heuristic thresholds here encode empirically tuned behavior and keep their
// defaults unless deliberately overridden.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level pinghud configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Monitor MonitorConfig `yaml:"monitor"`
	Probe   ProbeConfig   `yaml:"probe"`
	Overlay OverlayConfig `yaml:"overlay"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"PINGHUD_LOG_LEVEL"`
	Format string `yaml:"format" env:"PINGHUD_LOG_FORMAT"`
}

// MonitorConfig controls the refresh cycle and selection heuristics.
type MonitorConfig struct {
	// GameProcess is the executable name of the monitored game client.
	GameProcess string `yaml:"game_process" env:"PINGHUD_GAME_PROCESS"`

	// BoosterProcess is the executable name of the network booster whose
	// presence makes loopback connections count as tunnel hops.
	BoosterProcess string `yaml:"booster_process" env:"PINGHUD_BOOSTER_PROCESS"`

	// ProxyLabel is the display identity given to tunnel-hop connections.
	ProxyLabel string `yaml:"proxy_label" env:"PINGHUD_PROXY_LABEL"`

	// Interval is the refresh cadence.
	Interval time.Duration `yaml:"interval" env:"PINGHUD_INTERVAL"`

	// WindowRetention bounds the low/peak history.
	WindowRetention time.Duration `yaml:"window_retention" env:"PINGHUD_WINDOW_RETENTION"`

	// ProxyFloorMs discards near-zero tunnel-leg samples while the booster
	// is active.
	ProxyFloorMs float64 `yaml:"proxy_floor_ms" env:"PINGHUD_PROXY_FLOOR_MS"`
}

// ProbeConfig controls the TCP connect probes.
type ProbeConfig struct {
	Timeout   time.Duration `yaml:"timeout" env:"PINGHUD_PROBE_TIMEOUT"`
	CacheTTL  time.Duration `yaml:"cache_ttl" env:"PINGHUD_PROBE_CACHE_TTL"`
	Workers   int           `yaml:"workers" env:"PINGHUD_PROBE_WORKERS"`
	QueueSize int           `yaml:"queue_size" env:"PINGHUD_PROBE_QUEUE_SIZE"`
}

// OverlayConfig controls the local consumer surface (websocket feed, health,
// Prometheus metrics).
type OverlayConfig struct {
	Enabled bool   `yaml:"enabled" env:"PINGHUD_OVERLAY_ENABLED"`
	Listen  string `yaml:"listen" env:"PINGHUD_OVERLAY_LISTEN"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
		Monitor: MonitorConfig{
			GameProcess:     "BlackDesert64.exe",
			BoosterProcess:  "ExitLag.exe",
			ProxyLabel:      "ExitLag",
			Interval:        time.Second,
			WindowRetention: 300 * time.Second,
			ProxyFloorMs:    5.0,
		},
		Probe: ProbeConfig{
			Timeout:   200 * time.Millisecond,
			CacheTTL:  10 * time.Second,
			Workers:   8,
			QueueSize: 256,
		},
		Overlay: OverlayConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8471",
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Monitor.GameProcess == "" {
		return fmt.Errorf("monitor.game_process must be set")
	}
	if c.Monitor.ProxyLabel == "" {
		return fmt.Errorf("monitor.proxy_label must be set")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.WindowRetention <= 0 {
		return fmt.Errorf("monitor.window_retention must be positive, got %s", c.Monitor.WindowRetention)
	}
	if c.Monitor.ProxyFloorMs < 0 {
		return fmt.Errorf("monitor.proxy_floor_ms must not be negative, got %g", c.Monitor.ProxyFloorMs)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %s", c.Probe.Timeout)
	}
	if c.Probe.CacheTTL <= 0 {
		return fmt.Errorf("probe.cache_ttl must be positive, got %s", c.Probe.CacheTTL)
	}
	if c.Probe.Workers <= 0 {
		return fmt.Errorf("probe.workers must be positive, got %d", c.Probe.Workers)
	}
	if c.Probe.QueueSize <= 0 {
		return fmt.Errorf("probe.queue_size must be positive, got %d", c.Probe.QueueSize)
	}
	if c.Overlay.Enabled && c.Overlay.Listen == "" {
		return fmt.Errorf("overlay.listen must be set when the overlay is enabled")
	}
	return nil
}
