package machine

// Point identifies a physical location on the pumping unit that is monitored
// by a dedicated sensor channel.
type Point int

// Monitored points, in the order used by the external register layout.
const (
	PointCrankLeft Point = iota
	PointCrankRight
	PointTailBearing
	PointMidBearing
	PointHorsehead
	PointBelt
	// PointLine is reserved: it is sampled when configured but does not
	// participate in the alarm trigger rules yet.
	PointLine

	// PointCount is the number of monitored points including the reserved one.
	PointCount
)

// Kind describes what class of sensor serves a point. Vibration points carry
// three axes per reading, photoelectric points a single distance value.
type Kind int

// Sensor kinds.
const (
	KindVibration Kind = iota
	KindPhotoelectric
)

// pointNames maps points to the names used in configuration, the shared
// snapshot and log output.
var pointNames = [PointCount]string{
	PointCrankLeft:   "crank_left",
	PointCrankRight:  "crank_right",
	PointTailBearing: "tail_bearing",
	PointMidBearing:  "mid_bearing",
	PointHorsehead:   "horsehead",
	PointBelt:        "belt",
	PointLine:        "line",
}

// String returns the stable configuration name of the point.
func (p Point) String() string {
	if p < 0 || p >= PointCount {
		return "unknown"
	}

	return pointNames[p]
}

// Kind reports the sensor class serving the point.
func (p Point) Kind() Kind {
	switch p {
	case PointCrankLeft, PointCrankRight, PointTailBearing, PointMidBearing:
		return KindVibration
	default:
		return KindPhotoelectric
	}
}

// AlarmPoints lists the six points that participate in the alarm rules.
// The reserved line point is deliberately excluded.
func AlarmPoints() []Point {
	return []Point{
		PointCrankLeft,
		PointCrankRight,
		PointTailBearing,
		PointMidBearing,
		PointHorsehead,
		PointBelt,
	}
}

// VibrationPoints lists the points whose severe readings classify as a
// mechanical fault when corroborated by electrical evidence.
func VibrationPoints() []Point {
	return []Point{
		PointCrankLeft,
		PointCrankRight,
		PointTailBearing,
		PointMidBearing,
	}
}

// PointByName resolves a configuration name back to a point.
func PointByName(name string) (Point, bool) {
	for p := Point(0); p < PointCount; p++ {
		if pointNames[p] == name {
			return p, true
		}
	}

	return 0, false
}
