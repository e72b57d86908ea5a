// Package state implements the shared state channel between the sampling
// and decision processes.
//
// The FileRepository stores the latest Snapshot as JSON on disk, written
// atomically by the producer and read-only by the consumer, with an explicit
// timestamp-plus-staleness-bound freshness contract.
package state
