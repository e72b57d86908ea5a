// Package observability instruments the two service loops with Prometheus
// counters and gauges and serves them over an optional /metrics listener.
package observability
