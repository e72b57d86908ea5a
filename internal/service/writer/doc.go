// Package writer implements the consumer side of the gateway: it loads the
// most recent sensor snapshot, runs the alarm decision rules and writes the
// complete register image to the RTU once per cycle.
package writer
