package registers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAddressRoundTrip verifies the translation is a bijection over the
// documented register range.
func TestAddressRoundTrip(t *testing.T) {
	t.Parallel()

	for engineering := uint16(3501); engineering <= 3520; engineering++ {
		transport, err := ToTransport(engineering)
		require.NoError(t, err)
		require.Equal(t, engineering-1, transport)

		back, err := ToEngineering(transport)
		require.NoError(t, err)
		require.Equal(t, engineering, back)
	}
}

// TestAddressBounds verifies the translation rejects values that would leave
// the representable range.
func TestAddressBounds(t *testing.T) {
	t.Parallel()

	_, err := ToTransport(0)
	require.ErrorIs(t, err, ErrAddressOutOfRange)

	_, err = ToEngineering(0xFFFF)
	require.ErrorIs(t, err, ErrAddressOutOfRange)

	transport, err := ToTransport(1)
	require.NoError(t, err)
	require.EqualValues(t, 0, transport)
}

// fakeTransport records writes and fails selected transport addresses.
type fakeTransport struct {
	writes map[uint16]uint16
	fail   map[uint16]error
}

func (f *fakeTransport) WriteSingleRegister(_ context.Context, _ uint8, address, value uint16) error {
	if err, ok := f.fail[address]; ok {
		return err
	}

	if f.writes == nil {
		f.writes = make(map[uint16]uint16)
	}

	f.writes[address] = value

	return nil
}

// TestWriterWriteAll verifies addresses are shifted once and all succeed.
func TestWriterWriteAll(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	writer := NewWriter(transport, 1)

	written, err := writer.WriteAll(context.Background(), map[uint16]uint16{
		3502: 2,
		3504: 3,
	})
	require.NoError(t, err)
	require.Equal(t, 2, written)

	// Transport sees 0-based addresses.
	require.Equal(t, map[uint16]uint16{3501: 2, 3503: 3}, transport.writes)
}

// TestWriterIndependentFailures verifies a failing address does not stop the
// remaining writes and is reported per address.
func TestWriterIndependentFailures(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("write timed out")
	transport := &fakeTransport{
		fail: map[uint16]error{3501: errBroken}, // transport address of 3502
	}
	writer := NewWriter(transport, 1)

	written, err := writer.WriteAll(context.Background(), map[uint16]uint16{
		3502: 1,
		3510: 1,
		3520: 0,
	})
	require.ErrorIs(t, err, errBroken)
	require.ErrorContains(t, err, "register 3502")
	require.Equal(t, 2, written)
	require.Equal(t, map[uint16]uint16{3509: 1, 3519: 0}, transport.writes)
}
