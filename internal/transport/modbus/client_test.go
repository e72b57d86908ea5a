package modbus

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedConn plays back a canned response in small chunks and signals an
// expired read deadline with a zero-byte read once the data is exhausted,
// the way a serial port does.
type scriptedConn struct {
	response []byte
	written  bytes.Buffer
	closed   bool
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if len(c.response) == 0 {
		return 0, nil
	}

	// Two bytes at a time so reassembly has to loop.
	n := copy(p, c.response[:min(2, len(c.response))])
	c.response = c.response[n:]

	return n, nil
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	return c.written.Write(p)
}

func (c *scriptedConn) Close() error {
	c.closed = true
	return nil
}

// rtuClient wires a client directly to a scripted connection, bypassing the
// serial port open.
func rtuClient(conn *scriptedConn) *Client {
	client := NewClient(Options{Mode: ModeRTU, SerialPort: "/dev/null"})
	client.conn = conn

	return client
}

func TestClientWriteSingleRegisterRTU(t *testing.T) {
	t.Parallel()

	// Byte-perfect echo of the request: unit 1, register 0x0DAD, value 2.
	conn := &scriptedConn{
		response: []byte{0x01, 0x06, 0x0D, 0xAD, 0x00, 0x02, 0x9B, 0x46},
	}
	client := rtuClient(conn)

	err := client.WriteSingleRegister(context.Background(), 1, 0x0DAD, 2)
	require.NoError(t, err)

	require.Equal(t, []byte{0x01, 0x06, 0x0D, 0xAD, 0x00, 0x02, 0x9B, 0x46}, conn.written.Bytes())
	require.False(t, conn.closed)
}

func TestClientReadHoldingRegistersRTU(t *testing.T) {
	t.Parallel()

	conn := &scriptedConn{
		response: []byte{0x01, 0x03, 0x02, 0x01, 0x2C, 0xB8, 0x09},
	}
	client := rtuClient(conn)

	values, err := client.ReadHoldingRegisters(context.Background(), 1, 0, 1)
	require.NoError(t, err)
	require.Equal(t, []uint16{300}, values)

	require.Equal(t, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}, conn.written.Bytes())
}

func TestClientReadInputRegistersRTU(t *testing.T) {
	t.Parallel()

	conn := &scriptedConn{
		response: []byte{0x01, 0x04, 0x02, 0x0B, 0xB8, 0xBE, 0x72},
	}
	client := rtuClient(conn)

	values, err := client.ReadInputRegisters(context.Background(), 1, 0, 1)
	require.NoError(t, err)
	require.Equal(t, []uint16{3000}, values)

	require.Equal(t, []byte{0x01, 0x04, 0x00, 0x00, 0x00, 0x01, 0x31, 0xCA}, conn.written.Bytes())
}

func TestClientWriteSingleRegisterRTUException(t *testing.T) {
	t.Parallel()

	// Illegal data address exception for function 0x06.
	conn := &scriptedConn{
		response: []byte{0x01, 0x86, 0x02, 0xC3, 0xA1},
	}
	client := rtuClient(conn)

	err := client.WriteSingleRegister(context.Background(), 1, 0x0DAD, 2)

	var exception *ExceptionError
	require.ErrorAs(t, err, &exception)
	require.Equal(t, funcWriteSingle, exception.Function)
	require.Equal(t, byte(0x02), exception.Code)

	// The connection is dropped so the next operation reconnects.
	require.True(t, conn.closed)
}

func TestClientWriteSingleRegisterRTUTimeout(t *testing.T) {
	t.Parallel()

	// No response at all: the serial layer reports zero-byte reads.
	conn := &scriptedConn{}
	client := rtuClient(conn)

	err := client.WriteSingleRegister(context.Background(), 1, 0x0DAD, 2)
	require.ErrorIs(t, err, errShortFrame)
	require.True(t, conn.closed)
}

func TestClientReadRTUTruncatedBody(t *testing.T) {
	t.Parallel()

	// Header arrives but the body goes quiet mid-frame.
	conn := &scriptedConn{
		response: []byte{0x01, 0x03, 0x02, 0x01},
	}
	client := rtuClient(conn)

	_, err := client.ReadHoldingRegisters(context.Background(), 1, 0, 1)
	require.ErrorIs(t, err, errShortFrame)
	require.True(t, conn.closed)
}
