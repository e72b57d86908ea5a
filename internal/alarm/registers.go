package alarm

// Engineering (1-based) register addresses consumed by field equipment.
// The layout is fixed by the RTU/PLC documentation and must be preserved
// exactly; only the transport layer may shift it to 0-based addressing.
const (
	// RegOperatingStatus reports the pumping unit operating status.
	// No signal is wired yet, so it is held at 0 (running).
	RegOperatingStatus uint16 = 3501
	// RegOverallLevel carries the overall alarm severity, 0..3.
	RegOverallLevel uint16 = 3502
	// RegBrakeStatus reports the brake state. Not wired yet, held at 0.
	RegBrakeStatus uint16 = 3503
	// RegFaultType carries the fault classification, 0..3.
	RegFaultType uint16 = 3504

	// RegPointFaultBase is the first of six per-point boolean fault
	// registers, laid out in machine.Point order (crank left .. belt).
	RegPointFaultBase uint16 = 3505

	// RegElectricalFault is 1 when at least one phase is missing.
	RegElectricalFault uint16 = 3511
	// RegLoadFault is 1 when the load/position signal is abnormal.
	RegLoadFault uint16 = 3512

	// RegPointLevelBase is the first of six per-point severity registers,
	// in the same point order as the fault bits.
	RegPointLevelBase uint16 = 3513

	// RegElectricalLevel is 0 with all phases present, 1 with one phase
	// missing and 2 with two or more missing.
	RegElectricalLevel uint16 = 3519
	// RegLoadLevel is 0 when the load signal is normal, 1 otherwise.
	RegLoadLevel uint16 = 3520
)

// RegisterCount is the size of the complete map produced by every decision.
const RegisterCount = 20

// FirstRegister and LastRegister bound the documented engineering range.
const (
	FirstRegister = RegOperatingStatus
	LastRegister  = RegLoadLevel
)
