package sampler

import (
	"context"
	"time"

	"github.com/oshokin/pump-alarm-gateway/internal/config"
	"github.com/oshokin/pump-alarm-gateway/internal/domain/machine"
	"github.com/oshokin/pump-alarm-gateway/internal/logger"
	"github.com/oshokin/pump-alarm-gateway/internal/observability"
	"github.com/oshokin/pump-alarm-gateway/internal/threshold"
)

// ChannelReader is the transport capability the aggregator consumes.
// Every call must be time-bounded by the implementation.
type ChannelReader interface {
	// ReadHoldingRegisters reads count holding registers at a 0-based
	// address on the given unit.
	ReadHoldingRegisters(ctx context.Context, unitID uint8, address, count uint16) ([]uint16, error)
	// ReadInputRegisters reads count input registers at a 0-based address
	// on the given unit.
	ReadInputRegisters(ctx context.Context, unitID uint8, address, count uint16) ([]uint16, error)
}

// vibrationAxes is the number of registers per vibration reading (X, Y, Z).
const vibrationAxes = 3

// phaseCount is the number of electrical phase registers.
const phaseCount = 3

// retained remembers the most recent successful sample of one channel so a
// transient read failure coasts on known data instead of reporting a silent
// "all normal".
type retained struct {
	reading machine.Reading
	at      time.Time
	valid   bool
}

// Aggregator reads every monitored channel once per cycle, classifies the
// values and folds multi-axis readings into one severity per point.
//
// Failed reads never default to level 0: the previous reading is retained
// up to the configured retention bound, after which the point is marked
// degraded while still holding its last severity.
type Aggregator struct {
	reader  ChannelReader
	cfg     *config.Config
	plan    map[machine.Point]config.PointConfig
	metrics *observability.Metrics

	last       [machine.PointCount]retained
	lastPhases retained
	phaseOK    [phaseCount]bool
	phaseVals  [phaseCount]float64
}

// NewAggregator creates an aggregator over a validated configuration.
func NewAggregator(cfg *config.Config, reader ChannelReader, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		reader:  reader,
		cfg:     cfg,
		plan:    cfg.PointPlan(),
		metrics: metrics,
		// Electrical phases start from the safe default: all present.
		phaseOK: [phaseCount]bool{true, true, true},
	}
}

// AcquireOnce samples every configured channel and builds the snapshot for
// this cycle. It never fails as a whole: individual channel failures are
// absorbed by the retention policy and surfaced via logs and metrics.
func (a *Aggregator) AcquireOnce(ctx context.Context, now time.Time) *machine.Snapshot {
	snapshot := &machine.Snapshot{
		Timestamp: now,
		// No load/position channel is wired yet; the safe default is
		// normal, matching the reserved register semantics.
		LoadOK: true,
	}

	for p := machine.Point(0); p < machine.PointCount; p++ {
		pointCfg := a.plan[p]
		if pointCfg.Disabled {
			continue
		}

		reading, err := a.samplePoint(ctx, p, pointCfg)
		if err != nil {
			logger.WarnKV(ctx, "Channel read failed", "point", p.String(), "error", err)
			a.metrics.CountReadFailure(p.String())

			reading = a.retainedReading(p, now)
		} else {
			a.last[p] = retained{reading: reading, at: now, valid: true}
		}

		snapshot.SetReading(p, reading)
	}

	a.sampleElectrical(ctx, now)

	snapshot.PhaseA = a.phaseOK[0]
	snapshot.PhaseB = a.phaseOK[1]
	snapshot.PhaseC = a.phaseOK[2]
	snapshot.PhaseValues = a.phaseVals

	a.metrics.SetDegradedPoints(len(snapshot.DegradedPoints()))

	return snapshot
}

// samplePoint reads one point and classifies it. Vibration points carry
// three axis registers scaled to mm/s and folded worst-case; photoelectric
// points carry a single distance register.
func (a *Aggregator) samplePoint(ctx context.Context, p machine.Point, pointCfg config.PointConfig) (machine.Reading, error) {
	bounds := a.cfg.ThresholdFor(p)

	if p.Kind() == machine.KindVibration {
		regs, err := a.reader.ReadHoldingRegisters(ctx, pointCfg.UnitID, pointCfg.Address, vibrationAxes)
		if err != nil {
			return machine.Reading{}, err
		}

		// Boundaries are documented in raw register units; the stored
		// value is the worst axis scaled to mm/s.
		raw := make([]float64, len(regs))
		worst := 0.0

		for i, reg := range regs {
			raw[i] = float64(reg)

			if v := raw[i] * a.cfg.VibrationScale; v > worst {
				worst = v
			}
		}

		return machine.Reading{
			Value: worst,
			Level: threshold.ClassifyMax(raw, bounds),
		}, nil
	}

	regs, err := a.reader.ReadInputRegisters(ctx, pointCfg.UnitID, pointCfg.Address, 1)
	if err != nil {
		return machine.Reading{}, err
	}

	value := float64(regs[0])

	return machine.Reading{
		Value: value,
		Level: threshold.Classify(value, bounds),
	}, nil
}

// retainedReading returns the last good reading for the point. Within the
// retention bound it passes as current; past it the point is marked
// degraded, its severity still held rather than silently zeroed.
func (a *Aggregator) retainedReading(p machine.Point, now time.Time) machine.Reading {
	last := a.last[p]
	if !last.valid {
		// Never observed: nothing to retain, only the degraded mark.
		return machine.Reading{Degraded: true}
	}

	reading := last.reading
	if now.Sub(last.at) > a.cfg.Sampling.ChannelRetention {
		reading.Degraded = true
	}

	return reading
}

// sampleElectrical reads the three phase registers. A failed read keeps the
// previous phase states up to the retention bound; past it the phases fall
// back to the safe default of all present, so a dead electrical sensor never
// fabricates a phase-loss alarm.
func (a *Aggregator) sampleElectrical(ctx context.Context, now time.Time) {
	regs, err := a.reader.ReadHoldingRegisters(ctx, a.cfg.Electrical.UnitID, a.cfg.Electrical.Address, phaseCount)
	if err != nil {
		logger.WarnKV(ctx, "Electrical read failed", "error", err)
		a.metrics.CountReadFailure("electrical")

		if !a.lastPhases.valid || now.Sub(a.lastPhases.at) > a.cfg.Sampling.ChannelRetention {
			a.phaseOK = [phaseCount]bool{true, true, true}
		}

		return
	}

	for i := 0; i < phaseCount; i++ {
		a.phaseVals[i] = float64(regs[i])
		// A live phase shows a non-zero parameter value.
		a.phaseOK[i] = regs[i] > 0
	}

	a.lastPhases = retained{at: now, valid: true}
}
