package machine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSeverityClamp verifies that out-of-range grades are forced into [0, 3].
func TestSeverityClamp(t *testing.T) {
	t.Parallel()

	require.Equal(t, SeverityNormal, Severity(-5).Clamp())
	require.Equal(t, SeveritySevere, Severity(17).Clamp())
	require.Equal(t, SeverityCritical, SeverityCritical.Clamp())
}

// TestPointNames verifies the name round-trip used by configuration lookups.
func TestPointNames(t *testing.T) {
	t.Parallel()

	for p := Point(0); p < PointCount; p++ {
		name := p.String()
		require.NotEqual(t, "unknown", name)

		resolved, ok := PointByName(name)
		require.True(t, ok)
		require.Equal(t, p, resolved)
	}

	_, ok := PointByName("no-such-point")
	require.False(t, ok)
	require.Equal(t, "unknown", Point(99).String())
}

// TestSnapshotSensorState verifies the snapshot-to-state projection, including
// severity clamping of malformed input.
func TestSnapshotSensorState(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{
		Timestamp: time.Now(),
		PhaseA:    true,
		PhaseB:    false,
		PhaseC:    true,
		LoadOK:    true,
	}
	snap.SetReading(PointBelt, Reading{Value: 1700, Level: SeverityCritical})
	snap.SetReading(PointTailBearing, Reading{Value: 99, Level: Severity(9)})

	state := snap.SensorState()
	require.Equal(t, SeverityCritical, state.Severity(PointBelt))
	require.Equal(t, SeveritySevere, state.Severity(PointTailBearing))
	require.Equal(t, SeverityNormal, state.Severity(PointCrankLeft))
	require.Equal(t, 1, state.MissingPhases())
	require.False(t, state.AllPhasesOK())
	require.True(t, state.LoadOK)
}

// TestSnapshotDegradedPoints verifies degraded-channel bookkeeping.
func TestSnapshotDegradedPoints(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{}
	require.Empty(t, snap.DegradedPoints())

	snap.SetReading(PointMidBearing, Reading{Level: SeverityWarning, Degraded: true})
	require.Equal(t, []Point{PointMidBearing}, snap.DegradedPoints())
}

// TestSnapshotAge verifies freshness arithmetic.
func TestSnapshotAge(t *testing.T) {
	t.Parallel()

	now := time.Now()
	snap := &Snapshot{Timestamp: now.Add(-42 * time.Second)}
	require.Equal(t, 42*time.Second, snap.Age(now))
}

// TestNormalState verifies the all-healthy baseline.
func TestNormalState(t *testing.T) {
	t.Parallel()

	state := NormalState()
	require.True(t, state.AllPhasesOK())
	require.True(t, state.LoadOK)

	for p := Point(0); p < PointCount; p++ {
		require.Equal(t, SeverityNormal, state.Severity(p))
	}
}
