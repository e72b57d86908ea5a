package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pump-alarm-gateway/internal/domain/machine"
)

// stateWith builds an all-healthy state and applies the given mutation.
func stateWith(mutate func(*machine.SensorState)) machine.SensorState {
	state := machine.NormalState()
	if mutate != nil {
		mutate(&state)
	}

	return state
}

// requireRegisterMapTotal asserts that every documented address is present.
func requireRegisterMapTotal(t *testing.T, registers map[uint16]uint16) {
	t.Helper()

	require.Len(t, registers, RegisterCount)

	for addr := FirstRegister; addr <= LastRegister; addr++ {
		_, ok := registers[addr]
		require.True(t, ok, "address %d missing from register map", addr)
	}
}

// TestDecideAllNormal covers the quiet machine: everything zero, no flags.
func TestDecideAllNormal(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(nil))

	require.Equal(t, machine.SeverityNormal, decision.OverallLevel)
	require.Equal(t, FaultNone, decision.FaultType)
	requireRegisterMapTotal(t, decision.Registers)

	require.EqualValues(t, 0, decision.Registers[RegOverallLevel])
	require.EqualValues(t, 0, decision.Registers[RegFaultType])

	for i := range machine.AlarmPoints() {
		offset := uint16(i)
		require.EqualValues(t, 0, decision.Registers[RegPointFaultBase+offset])
		require.EqualValues(t, 0, decision.Registers[RegPointLevelBase+offset])
	}

	require.EqualValues(t, 0, decision.Registers[RegElectricalFault])
	require.EqualValues(t, 0, decision.Registers[RegLoadFault])

	require.False(t, decision.Flags[FlagLevel1])
	require.False(t, decision.Flags[FlagLevel2])
	require.False(t, decision.Flags[FlagLevel3])
	require.False(t, decision.Flags[FlagSensorFault])
}

// TestDecideSevereBelt covers a broken belt confirmed by a missing phase.
func TestDecideSevereBelt(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(func(s *machine.SensorState) {
		s.Severities[machine.PointBelt] = machine.SeveritySevere
		s.PhaseB = false
	}))

	require.Equal(t, machine.SeveritySevere, decision.OverallLevel)
	require.Equal(t, FaultBeltBroken, decision.FaultType)
	require.True(t, decision.Flags[FlagLevel3])
	require.True(t, decision.Flags[FlagSevereBelt])
	require.False(t, decision.Flags[FlagSensorFault])

	requireRegisterMapTotal(t, decision.Registers)
	require.EqualValues(t, 3, decision.Registers[RegOverallLevel])
	require.EqualValues(t, 1, decision.Registers[RegFaultType])
	require.EqualValues(t, 3, decision.Registers[RegPointLevelBase+5]) // belt level
	require.EqualValues(t, 1, decision.Registers[RegPointFaultBase+5]) // belt fault bit
	require.EqualValues(t, 1, decision.Registers[RegElectricalLevel])
}

// TestDecideSensorFaultDowngrade covers the single most important rule:
// a severe point reading with healthy electrical and load signals is treated
// as a sensor malfunction and the overall level is forced down to 2.
func TestDecideSensorFaultDowngrade(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(func(s *machine.SensorState) {
		s.Severities[machine.PointTailBearing] = machine.SeveritySevere
	}))

	require.Equal(t, machine.SeverityCritical, decision.OverallLevel)
	require.Equal(t, FaultSensor, decision.FaultType)
	require.True(t, decision.Flags[FlagSensorFault])
	require.True(t, decision.Flags[FlagLevel2])
	require.False(t, decision.Flags[FlagLevel3])

	// The per-point level register still reports the raw severity.
	requireRegisterMapTotal(t, decision.Registers)
	require.EqualValues(t, 2, decision.Registers[RegOverallLevel])
	require.EqualValues(t, 3, decision.Registers[RegFaultType])
	require.EqualValues(t, 3, decision.Registers[RegPointLevelBase+2]) // tail bearing
}

// TestDecideSevereMechanical covers escalation pre-empting the downgrade:
// the same severe reading with two phases missing is a confirmed failure.
func TestDecideSevereMechanical(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(func(s *machine.SensorState) {
		s.Severities[machine.PointCrankLeft] = machine.SeveritySevere
		s.PhaseA = false
		s.PhaseC = false
	}))

	require.Equal(t, machine.SeveritySevere, decision.OverallLevel)
	require.Equal(t, FaultMechanical, decision.FaultType)
	require.True(t, decision.Flags[FlagLevel3])
	require.True(t, decision.Flags[FlagSevereMechanical])
	require.False(t, decision.Flags[FlagSensorFault])
	require.EqualValues(t, 2, decision.Registers[RegElectricalLevel])
}

// TestDecideSinglePhaseMissing covers a warning raised by electrical
// evidence alone.
func TestDecideSinglePhaseMissing(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(func(s *machine.SensorState) {
		s.PhaseC = false
	}))

	require.Equal(t, machine.SeverityWarning, decision.OverallLevel)
	require.Equal(t, FaultNone, decision.FaultType)
	require.True(t, decision.Flags[FlagLevel1])
	require.True(t, decision.Flags[FlagElectrical1])
	require.False(t, decision.Flags[FlagElectrical2])

	require.EqualValues(t, 1, decision.Registers[RegOverallLevel])
	require.EqualValues(t, 1, decision.Registers[RegElectricalFault])
	require.EqualValues(t, 1, decision.Registers[RegElectricalLevel])
}

// TestDecideBeltOutranksMechanical ensures the belt classification wins
// when both severe branches coincide.
func TestDecideBeltOutranksMechanical(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(func(s *machine.SensorState) {
		s.Severities[machine.PointBelt] = machine.SeveritySevere
		s.Severities[machine.PointMidBearing] = machine.SeveritySevere
		s.PhaseA = false
	}))

	require.Equal(t, FaultBeltBroken, decision.FaultType)
	require.True(t, decision.Flags[FlagSevereBelt])
	require.True(t, decision.Flags[FlagSevereMechanical])
}

// TestDecideLoadAbnormal covers the load/position branch.
func TestDecideLoadAbnormal(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(func(s *machine.SensorState) {
		s.LoadOK = false
	}))

	require.Equal(t, machine.SeverityWarning, decision.OverallLevel)
	require.True(t, decision.Flags[FlagLevel1])
	require.True(t, decision.Flags[FlagLoad])
	require.EqualValues(t, 1, decision.Registers[RegLoadFault])
	require.EqualValues(t, 1, decision.Registers[RegLoadLevel])
}

// TestDecideSensorFaultNeedsHealthyLoad ensures an abnormal load signal
// disables the sensor-fault interpretation.
func TestDecideSensorFaultNeedsHealthyLoad(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(func(s *machine.SensorState) {
		s.Severities[machine.PointHorsehead] = machine.SeveritySevere
		s.LoadOK = false
	}))

	require.False(t, decision.Flags[FlagSensorFault])
	require.Equal(t, FaultNone, decision.FaultType)
	require.Equal(t, machine.SeveritySevere, decision.OverallLevel)
}

// TestDecideReservedLineLevel ensures the reserved line point raises the
// overall severity but never trips the trigger rules.
func TestDecideReservedLineLevel(t *testing.T) {
	t.Parallel()

	decision := Decide(stateWith(func(s *machine.SensorState) {
		s.Severities[machine.PointLine] = machine.SeverityWarning
	}))

	require.Equal(t, machine.SeverityWarning, decision.OverallLevel)
	require.False(t, decision.Flags[FlagLevel1])
	require.False(t, decision.Flags[FlagLevel2])
}

// TestDecideIdempotent verifies that identical input yields identical output.
func TestDecideIdempotent(t *testing.T) {
	t.Parallel()

	state := stateWith(func(s *machine.SensorState) {
		s.Severities[machine.PointBelt] = machine.SeverityCritical
		s.Severities[machine.PointCrankRight] = machine.SeverityWarning
		s.PhaseB = false
		s.LoadOK = false
	})

	first := Decide(state)
	second := Decide(state)

	require.Equal(t, first.OverallLevel, second.OverallLevel)
	require.Equal(t, first.FaultType, second.FaultType)
	require.Equal(t, first.Registers, second.Registers)
	require.Equal(t, first.Flags, second.Flags)
}

// TestDecideOverallAlwaysInRange fuzzes the state space coarsely and checks
// the overall level never leaves [0, 3] and the map stays total.
func TestDecideOverallAlwaysInRange(t *testing.T) {
	t.Parallel()

	severities := []machine.Severity{0, 1, 2, 3, machine.Severity(7)}

	for _, belt := range severities {
		for _, crank := range severities {
			for missing := 0; missing <= 3; missing++ {
				for _, loadOK := range []bool{true, false} {
					state := machine.NormalState()
					state.Severities[machine.PointBelt] = belt
					state.Severities[machine.PointCrankLeft] = crank
					state.PhaseA = missing < 1
					state.PhaseB = missing < 2
					state.PhaseC = missing < 3
					state.LoadOK = loadOK

					decision := Decide(state)
					require.GreaterOrEqual(t, decision.OverallLevel, machine.SeverityNormal)
					require.LessOrEqual(t, decision.OverallLevel, machine.SeveritySevere)
					requireRegisterMapTotal(t, decision.Registers)
				}
			}
		}
	}
}

// TestPointFlag verifies per-point flag naming.
func TestPointFlag(t *testing.T) {
	t.Parallel()

	require.Equal(t, "belt_3", PointFlag(machine.PointBelt, machine.SeveritySevere))
	require.Equal(t, "crank_left_1", PointFlag(machine.PointCrankLeft, machine.SeverityWarning))
}
