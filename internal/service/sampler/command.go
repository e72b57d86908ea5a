package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/pump-alarm-gateway/internal/config"
	"github.com/oshokin/pump-alarm-gateway/internal/logger"
	"github.com/oshokin/pump-alarm-gateway/internal/observability"
	"github.com/oshokin/pump-alarm-gateway/internal/repository/state"
	"github.com/oshokin/pump-alarm-gateway/internal/service/common"
	"github.com/oshokin/pump-alarm-gateway/internal/transport/modbus"
)

// Options controls the sampling loop behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Interval overrides the sampling interval from configuration when positive.
	Interval time.Duration
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
}

// Run samples every monitored channel on a fixed cadence and publishes one
// snapshot per cycle. A cycle in flight completes before a shutdown request
// is observed at the next tick.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pump-sampler")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Command line log level overrides the configured one.
	levelName := cfg.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}

	if level, ok := logger.ParseLogLevel(levelName); ok {
		logger.SetLevel(level)
	}

	// Two samplers would race on the shared state artifact.
	if err = common.EnsureSingleInstance(); err != nil {
		return err
	}

	interval := cfg.Sampling.Interval
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	// Connect lazily: the first cycle dials the bus.
	client := modbus.NewClient(modbus.Options{
		Mode:       modbus.Mode(cfg.Transport.Mode),
		SerialPort: cfg.Transport.SerialPort,
		BaudRate:   cfg.Transport.BaudRate,
		Address:    cfg.Transport.Address,
		Timeout:    cfg.Transport.Timeout,
	})

	defer func() {
		_ = client.Close()
	}()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	observability.Serve(ctx, cfg.MetricsAddress)

	repository := state.NewFileRepository(cfg.StateFile)
	aggregator := NewAggregator(cfg, client, metrics)

	logger.InfoKV(ctx, "Sampling channels",
		"transport", cfg.Transport.Mode,
		"interval", interval.String(),
		"state_file", cfg.StateFile)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Main sampling loop until context cancellation.
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case now := <-ticker.C:
			snapshot := aggregator.AcquireOnce(ctx, now)

			if err = repository.Publish(ctx, snapshot); err != nil {
				logger.ErrorKV(ctx, "Publish snapshot failed", "error", err)
				continue
			}

			metrics.CountSamplePublished()
			logger.DebugKV(ctx, "Snapshot published",
				"degraded_points", len(snapshot.DegradedPoints()),
				"phases_ok", snapshot.PhaseA && snapshot.PhaseB && snapshot.PhaseC)
		}
	}
}
