// Package sampler implements the producer side of the gateway: it polls the
// vibration, photoelectric and electrical channels over Modbus, classifies
// each reading against its thresholds and publishes a timestamped snapshot
// for the decision service to consume.
package sampler
