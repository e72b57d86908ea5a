// Package machine defines the domain model of the monitored pumping unit:
// the enumerated monitored points, severity grades, the aggregated
// SensorState value consumed by the alarm engine, and the Snapshot artifact
// shared between the sampling and decision processes.
package machine
