package alarm

import (
	"fmt"

	"github.com/oshokin/pump-alarm-gateway/internal/domain/machine"
)

// FaultType classifies what the alarm most likely means for the machine.
type FaultType uint16

// Fault classifications written to RegFaultType, in priority order.
// A confirmed severe fault outranks a suspected sensor malfunction.
const (
	FaultNone       FaultType = 0
	FaultBeltBroken FaultType = 1
	FaultMechanical FaultType = 2
	FaultSensor     FaultType = 3
)

// Diagnostic condition flags. Per-point flags are derived with PointFlag and
// are independent of each other: several can hold at once.
const (
	// FlagLevel1 holds when any warning-grade condition is present.
	FlagLevel1 = "level_1"
	// FlagLevel2 holds when any critical-grade condition is present.
	FlagLevel2 = "level_2"
	// FlagLevel3 holds when a severe fault is confirmed.
	FlagLevel3 = "level_3"
	// FlagSensorFault holds when a point reads severe while electrical and
	// load signals stay healthy, suggesting a faulty sensor.
	FlagSensorFault = "sensor_fault"
	// FlagSevereBelt holds when the belt reads severe with electrical
	// corroboration.
	FlagSevereBelt = "severe_belt"
	// FlagSevereMechanical holds when a vibration point reads severe with
	// electrical corroboration.
	FlagSevereMechanical = "severe_mechanical"
	// FlagElectrical1 and FlagElectrical2 hold when at least one,
	// respectively two, phases are missing.
	FlagElectrical1 = "electrical_1"
	FlagElectrical2 = "electrical_2"
	// FlagLoad holds when the load/position signal is abnormal.
	FlagLoad = "load"
)

// PointFlag names the per-point condition flag for the given grade,
// e.g. "belt_2" when the belt point has reached at least level 2.
func PointFlag(p machine.Point, level machine.Severity) string {
	return fmt.Sprintf("%s_%d", p, level)
}

// Decision is the complete output of one engine evaluation. It is ephemeral:
// nothing in the engine persists across cycles.
type Decision struct {
	// OverallLevel is the machine-level alarm severity, 0..3.
	OverallLevel machine.Severity
	// FaultType is the classification written alongside the level.
	FaultType FaultType
	// Registers maps every engineering register address to its value.
	// The map is total: all documented addresses are present every cycle so
	// that a write always clears stale alarms.
	Registers map[uint16]uint16
	// Flags holds the diagnostic condition flags for auxiliary reporting.
	Flags map[string]bool
}

// Decide evaluates the alarm rules against one aggregated state. It is a
// pure function: no I/O, no memory of prior invocations. Debouncing or
// hysteresis, if ever needed, belongs to the caller.
func Decide(state machine.SensorState) Decision {
	missing := state.MissingPhases()

	electricalLevel := machine.SeverityNormal

	switch {
	case missing >= 2:
		electricalLevel = machine.SeverityCritical
	case missing == 1:
		electricalLevel = machine.SeverityWarning
	}

	loadLevel := machine.SeverityNormal
	if !state.LoadOK {
		loadLevel = machine.SeverityWarning
	}

	// Level 1: any point at warning grade, a missing phase or an abnormal
	// load signal.
	level1 := anyPointAtLeast(state, machine.SeverityWarning) ||
		missing >= 1 || !state.LoadOK

	// Level 2: any point at critical grade, two phases missing, or a severe
	// point reading without corroborating electrical/load evidence. The last
	// disjunct is the suspected sensor malfunction.
	sensorFault := anyPointAtLeast(state, machine.SeveritySevere) &&
		state.AllPhasesOK() && state.LoadOK
	level2 := anyPointAtLeast(state, machine.SeverityCritical) ||
		missing >= 2 || sensorFault

	// Level 3: a severe reading confirmed by electrical evidence. The belt
	// and the vibration points classify differently downstream.
	severeBelt := state.Severity(machine.PointBelt) >= machine.SeveritySevere && missing >= 1
	severeMechanical := anyVibrationAtLeast(state, machine.SeveritySevere) && missing >= 1
	level3 := severeBelt || severeMechanical

	// Overall severity: worst of every point (the reserved line point
	// included), the electrical proxy and the load proxy.
	overall := machine.SeverityNormal
	for p := machine.Point(0); p < machine.PointCount; p++ {
		if s := state.Severity(p); s > overall {
			overall = s
		}
	}

	if electricalLevel > overall {
		overall = electricalLevel
	}

	if loadLevel > overall {
		overall = loadLevel
	}

	overall = overall.Clamp()

	// Downgrade override: a severe point reading alone never escalates the
	// machine-level alarm past 2. Without electrical or load corroboration
	// it is treated as a sensor malfunction, not a machine failure.
	if sensorFault && overall >= machine.SeveritySevere {
		overall = machine.SeverityCritical
	}

	// Fault classification, mutually exclusive by priority: confirmed severe
	// faults outrank the suspected sensor fault.
	faultType := FaultNone

	switch {
	case severeBelt:
		faultType = FaultBeltBroken
	case severeMechanical:
		faultType = FaultMechanical
	case sensorFault:
		faultType = FaultSensor
	}

	return Decision{
		OverallLevel: overall,
		FaultType:    faultType,
		Registers:    buildRegisters(state, overall, faultType, electricalLevel, loadLevel, missing),
		Flags:        buildFlags(state, level1, level2, level3, sensorFault, severeBelt, severeMechanical, missing),
	}
}

// anyPointAtLeast reports whether any alarm-participating point has reached
// the grade. The reserved line point is excluded by design.
func anyPointAtLeast(state machine.SensorState, level machine.Severity) bool {
	for _, p := range machine.AlarmPoints() {
		if state.Severity(p) >= level {
			return true
		}
	}

	return false
}

// anyVibrationAtLeast reports whether any vibration point has reached the grade.
func anyVibrationAtLeast(state machine.SensorState, level machine.Severity) bool {
	for _, p := range machine.VibrationPoints() {
		if state.Severity(p) >= level {
			return true
		}
	}

	return false
}

// buildRegisters synthesizes the complete register map for one decision.
func buildRegisters(
	state machine.SensorState,
	overall machine.Severity,
	faultType FaultType,
	electricalLevel, loadLevel machine.Severity,
	missing int,
) map[uint16]uint16 {
	registers := make(map[uint16]uint16, RegisterCount)

	// Reserved signals, held at 0 until wired.
	registers[RegOperatingStatus] = 0
	registers[RegBrakeStatus] = 0

	registers[RegOverallLevel] = uint16(overall)
	registers[RegFaultType] = uint16(faultType)

	for i, p := range machine.AlarmPoints() {
		severity := state.Severity(p)

		fault := uint16(0)
		if severity >= machine.SeverityWarning {
			fault = 1
		}

		offset := uint16(i) //nolint:gosec // i is bounded by the six alarm points.
		registers[RegPointFaultBase+offset] = fault
		registers[RegPointLevelBase+offset] = uint16(severity)
	}

	electricalFault := uint16(0)
	if missing >= 1 {
		electricalFault = 1
	}

	loadFault := uint16(0)
	if !state.LoadOK {
		loadFault = 1
	}

	registers[RegElectricalFault] = electricalFault
	registers[RegLoadFault] = loadFault
	registers[RegElectricalLevel] = uint16(electricalLevel)
	registers[RegLoadLevel] = uint16(loadLevel)

	return registers
}

// buildFlags assembles the diagnostic flag set. Flags are independent
// observations, not a mutually exclusive classification.
func buildFlags(
	state machine.SensorState,
	level1, level2, level3, sensorFault, severeBelt, severeMechanical bool,
	missing int,
) map[string]bool {
	flags := map[string]bool{
		FlagLevel1:           level1,
		FlagLevel2:           level2,
		FlagLevel3:           level3,
		FlagSensorFault:      sensorFault,
		FlagSevereBelt:       severeBelt,
		FlagSevereMechanical: severeMechanical,
		FlagElectrical1:      missing >= 1,
		FlagElectrical2:      missing >= 2,
		FlagLoad:             !state.LoadOK,
	}

	for _, p := range machine.AlarmPoints() {
		severity := state.Severity(p)
		for level := machine.SeverityWarning; level <= machine.SeveritySevere; level++ {
			flags[PointFlag(p, level)] = severity >= level
		}
	}

	return flags
}
