package machine

import "time"

// Severity is a discrete fault grade for one point: 0 is normal, 3 is severe.
type Severity int

// Severity grades.
const (
	SeverityNormal   Severity = 0
	SeverityWarning  Severity = 1
	SeverityCritical Severity = 2
	SeveritySevere   Severity = 3
)

// Clamp forces the severity into the valid [0, 3] range.
func (s Severity) Clamp() Severity {
	if s < SeverityNormal {
		return SeverityNormal
	}

	if s > SeveritySevere {
		return SeveritySevere
	}

	return s
}

// SensorState is the aggregated machine condition consumed by the decision
// engine. It is a value: the engine invocation that receives it owns it and
// nothing mutates it afterwards.
type SensorState struct {
	// Severities holds the per-point fault grades, indexed by Point.
	Severities [PointCount]Severity
	// PhaseA, PhaseB and PhaseC report whether each electrical phase is
	// present. True means normal.
	PhaseA bool
	PhaseB bool
	PhaseC bool
	// LoadOK reports whether the load/position signal is normal.
	LoadOK bool
}

// NormalState returns a state with every point normal and every boolean
// signal healthy.
func NormalState() SensorState {
	return SensorState{
		PhaseA: true,
		PhaseB: true,
		PhaseC: true,
		LoadOK: true,
	}
}

// Severity returns the clamped severity of the given point.
func (s SensorState) Severity(p Point) Severity {
	if p < 0 || p >= PointCount {
		return SeverityNormal
	}

	return s.Severities[p].Clamp()
}

// MissingPhases counts how many electrical phases are absent (0..3).
func (s SensorState) MissingPhases() int {
	count := 0
	for _, ok := range []bool{s.PhaseA, s.PhaseB, s.PhaseC} {
		if !ok {
			count++
		}
	}

	return count
}

// AllPhasesOK reports whether all three electrical phases are present.
func (s SensorState) AllPhasesOK() bool {
	return s.MissingPhases() == 0
}

// Reading is the latest sample for one point: the raw engineering value, the
// derived severity and whether the channel is currently degraded (no fresh
// data within the retention bound).
type Reading struct {
	// Value is the measurement in engineering units (mm/s for vibration,
	// millimeters for photoelectric distance).
	Value float64 `json:"value"`
	// Level is the severity derived from Value by the threshold classifier.
	Level Severity `json:"level"`
	// Degraded marks a channel whose transport reads have been failing for
	// longer than the retention bound. The level then is the last known one,
	// never a silent zero.
	Degraded bool `json:"degraded,omitempty"`
}

// Snapshot is the shared state artifact exchanged between the sampling and
// decision processes. The producer overwrites it atomically every cycle; the
// consumer only reads it.
type Snapshot struct {
	// Timestamp is when the producer acquired the readings.
	Timestamp time.Time `json:"timestamp"`

	CrankLeft   Reading `json:"crank_left"`
	CrankRight  Reading `json:"crank_right"`
	TailBearing Reading `json:"tail_bearing"`
	MidBearing  Reading `json:"mid_bearing"`
	Horsehead   Reading `json:"horsehead"`
	Belt        Reading `json:"belt"`
	Line        Reading `json:"line"`

	// PhaseA, PhaseB and PhaseC report electrical phase presence.
	PhaseA bool `json:"phase_a"`
	PhaseB bool `json:"phase_b"`
	PhaseC bool `json:"phase_c"`
	// PhaseValues keeps the raw electrical readings for diagnostics.
	PhaseValues [3]float64 `json:"phase_values"`
	// LoadOK reports whether the load/position signal is normal.
	LoadOK bool `json:"load_ok"`
}

// Reading returns the stored reading for the given point.
func (s *Snapshot) Reading(p Point) Reading {
	switch p {
	case PointCrankLeft:
		return s.CrankLeft
	case PointCrankRight:
		return s.CrankRight
	case PointTailBearing:
		return s.TailBearing
	case PointMidBearing:
		return s.MidBearing
	case PointHorsehead:
		return s.Horsehead
	case PointBelt:
		return s.Belt
	case PointLine:
		return s.Line
	default:
		return Reading{}
	}
}

// SetReading stores the reading for the given point.
func (s *Snapshot) SetReading(p Point, r Reading) {
	switch p {
	case PointCrankLeft:
		s.CrankLeft = r
	case PointCrankRight:
		s.CrankRight = r
	case PointTailBearing:
		s.TailBearing = r
	case PointMidBearing:
		s.MidBearing = r
	case PointHorsehead:
		s.Horsehead = r
	case PointBelt:
		s.Belt = r
	case PointLine:
		s.Line = r
	}
}

// DegradedPoints lists the points currently marked degraded.
func (s *Snapshot) DegradedPoints() []Point {
	var degraded []Point

	for p := Point(0); p < PointCount; p++ {
		if s.Reading(p).Degraded {
			degraded = append(degraded, p)
		}
	}

	return degraded
}

// SensorState builds the value consumed by the decision engine. Severities
// are clamped so the engine always sees well-formed input.
func (s *Snapshot) SensorState() SensorState {
	state := SensorState{
		PhaseA: s.PhaseA,
		PhaseB: s.PhaseB,
		PhaseC: s.PhaseC,
		LoadOK: s.LoadOK,
	}

	for p := Point(0); p < PointCount; p++ {
		state.Severities[p] = s.Reading(p).Level.Clamp()
	}

	return state
}

// Age reports how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}
