// Package alarm implements the pure alarm decision engine: it turns one
// aggregated SensorState into an overall severity, a fault classification,
// the complete register map for the RTU/PLC and a set of diagnostic flags.
//
// The engine is stateless and side-effect free; every cycle is evaluated
// fresh from the snapshot it is given.
package alarm
