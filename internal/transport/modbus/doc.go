// Package modbus implements the register transport consumed by the sampling
// and decision loops: a minimal Modbus master speaking RTU over a serial
// line or Modbus TCP over a socket.
//
// Every operation is time-bounded and a failure drops the connection so the
// next cycle reconnects cleanly; callers treat errors as normal per-cycle
// conditions. Addresses at this layer are 0-based transport addresses.
package modbus
