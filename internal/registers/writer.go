package registers

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Transport is the narrow register-write capability the writer consumes.
// Implementations must bound the latency of every call.
type Transport interface {
	// WriteSingleRegister writes one holding register at a 0-based
	// transport address on the given unit.
	WriteSingleRegister(ctx context.Context, unitID uint8, address, value uint16) error
}

// Writer pushes a complete decision register map through the transport.
// It is the single component that crosses the engineering/transport
// address boundary.
type Writer struct {
	transport Transport
	unitID    uint8
}

// NewWriter returns a writer targeting the given unit.
func NewWriter(transport Transport, unitID uint8) *Writer {
	return &Writer{
		transport: transport,
		unitID:    unitID,
	}
}

// WriteAll writes every register in the map in ascending address order.
// Each address is written independently: a failure on one address is
// recorded and the remaining addresses are still attempted, so a transient
// hiccup never leaves the rest of the map stale. It returns the number of
// registers written and the joined per-address errors, if any.
func (w *Writer) WriteAll(ctx context.Context, registers map[uint16]uint16) (int, error) {
	addresses := make([]uint16, 0, len(registers))
	for address := range registers {
		addresses = append(addresses, address)
	}

	sort.Slice(addresses, func(i, j int) bool { return addresses[i] < addresses[j] })

	var (
		written int
		errs    []error
	)

	for _, engineering := range addresses {
		transportAddress, err := ToTransport(engineering)
		if err != nil {
			errs = append(errs, fmt.Errorf("register %d: %w", engineering, err))
			continue
		}

		if err = w.transport.WriteSingleRegister(ctx, w.unitID, transportAddress, registers[engineering]); err != nil {
			errs = append(errs, fmt.Errorf("register %d: %w", engineering, err))
			continue
		}

		written++
	}

	return written, errors.Join(errs...)
}
