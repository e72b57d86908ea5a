package registers

import (
	"errors"
	"fmt"
	"math"
)

// Engineering addresses are the 1-based register numbers used in all field
// documentation and everywhere above this package. Transport addresses are
// the 0-based numbers the register protocol actually carries. The off-by-one
// correction happens here and nowhere else.

var (
	// ErrAddressOutOfRange is returned when an address cannot be translated
	// without leaving the documented range.
	ErrAddressOutOfRange = errors.New("register address out of range")
)

// ToTransport converts a 1-based engineering address to its 0-based
// transport form.
func ToTransport(engineering uint16) (uint16, error) {
	if engineering == 0 {
		return 0, fmt.Errorf("%w: engineering address 0", ErrAddressOutOfRange)
	}

	return engineering - 1, nil
}

// ToEngineering converts a 0-based transport address back to the 1-based
// engineering form.
func ToEngineering(transport uint16) (uint16, error) {
	if transport == math.MaxUint16 {
		return 0, fmt.Errorf("%w: transport address %d", ErrAddressOutOfRange, transport)
	}

	return transport + 1, nil
}
