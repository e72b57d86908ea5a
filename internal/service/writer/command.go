package writer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/pump-alarm-gateway/internal/alarm"
	"github.com/oshokin/pump-alarm-gateway/internal/config"
	"github.com/oshokin/pump-alarm-gateway/internal/logger"
	"github.com/oshokin/pump-alarm-gateway/internal/observability"
	"github.com/oshokin/pump-alarm-gateway/internal/registers"
	"github.com/oshokin/pump-alarm-gateway/internal/repository/state"
	"github.com/oshokin/pump-alarm-gateway/internal/service/common"
	"github.com/oshokin/pump-alarm-gateway/internal/transport/modbus"
)

// Options controls the decision loop behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Interval overrides the decision interval from configuration when positive.
	Interval time.Duration
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
}

// Run consumes the latest sensor snapshot on a fixed cadence, derives the
// alarm decision and pushes the full register image to the RTU. A stale or
// missing snapshot skips the cycle; it never zeroes the registers.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pump-alarm")

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

	// Two writers would interleave register writes on the bus.
	if err = common.EnsureSingleInstance(); err != nil {
		return err
	}

	interval := cfg.Decision.Interval
	if opts.Interval > 0 {
		interval = opts.Interval
	}

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
	registerWriter := registers.NewWriter(client, cfg.Transport.UnitID)

	logger.InfoKV(ctx, "Evaluating alarm decisions",
		"transport", cfg.Transport.Mode,
		"interval", interval.String(),
		"staleness_bound", cfg.Decision.StalenessBound.String(),
		"state_file", cfg.StateFile)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Main decision loop until context cancellation. The cycle in flight
	// finishes its write before a shutdown request is observed.
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			if err = runCycle(ctx, cfg, repository, registerWriter, metrics); err != nil {
				logger.ErrorKV(ctx, "Decision cycle failed", "error", err)
			}
		}
	}
}

// runCycle evaluates one snapshot and writes the resulting register image.
func runCycle(
	ctx context.Context,
	cfg *config.Config,
	repository state.Repository,
	registerWriter *registers.Writer,
	metrics *observability.Metrics,
) error {
	snapshot, err := repository.LoadLatest(ctx, cfg.Decision.StalenessBound)

	switch {
	case errors.Is(err, state.ErrNotFound):
		// The sampler has not published yet; nothing to decide on.
		logger.Debugf(ctx, "No snapshot yet, skipping cycle")
		return nil
	case errors.Is(err, state.ErrStale):
		metrics.CountStaleSnapshot()
		return fmt.Errorf("snapshot stale: %w", err)
	case err != nil:
		return fmt.Errorf("load snapshot: %w", err)
	}

	decision := alarm.Decide(snapshot.SensorState())

	written, err := registerWriter.WriteAll(ctx, decision.Registers)

	metrics.CountDecisionCycle()
	metrics.SetOverallLevel(int(decision.OverallLevel))
	metrics.CountWriteFailures(len(decision.Registers) - written)

	if err != nil {
		return fmt.Errorf("write registers (%d of %d succeeded): %w",
			written, len(decision.Registers), err)
	}

	logger.DebugKV(ctx, "Register image written",
		"overall_level", int(decision.OverallLevel),
		"fault_type", uint16(decision.FaultType),
		"registers", written)

	return nil
}
