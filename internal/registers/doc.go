// Package registers owns the boundary between 1-based engineering register
// addresses and the 0-based addresses used by the register transport.
// All register writes go through this package; components above it see only
// engineering addresses, components below it only transport addresses.
package registers
