package modbus

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Mode selects the bus framing.
type Mode string

// Supported transport modes.
const (
	// ModeRTU speaks Modbus RTU over a serial line.
	ModeRTU Mode = "rtu"
	// ModeTCP speaks Modbus TCP over a socket.
	ModeTCP Mode = "tcp"
)

// Options parameterizes a client.
type Options struct {
	// Mode selects RTU or TCP framing.
	Mode Mode
	// SerialPort is the device path in RTU mode.
	SerialPort string
	// BaudRate is the serial speed in RTU mode (8-N-1 assumed).
	BaudRate int
	// Address is the host:port target in TCP mode.
	Address string
	// Timeout bounds every individual bus operation.
	Timeout time.Duration
}

// Client is a minimal Modbus master covering the three operations the
// gateway needs: read holding registers, read input registers and write a
// single holding register. All addresses are 0-based transport addresses.
//
// The connection is opened lazily and dropped on any I/O error, so a failed
// operation costs one cycle and the next one reconnects. Callers treat
// per-operation errors as normal transient conditions.
type Client struct {
	opts Options

	// mu serializes bus transactions; Modbus allows one outstanding
	// request per master.
	mu            sync.Mutex
	conn          io.ReadWriteCloser
	transactionID uint16
}

// NewClient creates a client. No connection is made until the first
// operation.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}

	return &Client{opts: opts}
}

// ReadHoldingRegisters reads count holding registers starting at a 0-based
// address on the given unit.
func (c *Client) ReadHoldingRegisters(ctx context.Context, unitID uint8, address, count uint16) ([]uint16, error) {
	return c.readRegisters(ctx, funcReadHolding, unitID, address, count)
}

// ReadInputRegisters reads count input registers starting at a 0-based
// address on the given unit.
func (c *Client) ReadInputRegisters(ctx context.Context, unitID uint8, address, count uint16) ([]uint16, error) {
	return c.readRegisters(ctx, funcReadInput, unitID, address, count)
}

// WriteSingleRegister writes one holding register at a 0-based address on
// the given unit and verifies the echo.
func (c *Client) WriteSingleRegister(ctx context.Context, unitID uint8, address, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pdu, err := c.roundTrip(ctx, unitID, buildWritePDU(address, value), 5)
	if err != nil {
		return fmt.Errorf("write register %d: %w", address, err)
	}

	if err = parseWriteResponse(pdu, address, value); err != nil {
		return fmt.Errorf("write register %d: %w", address, err)
	}

	return nil
}

// Close drops the bus connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dropConn()
}

func (c *Client) readRegisters(ctx context.Context, function byte, unitID uint8, address, count uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pdu, err := c.roundTrip(ctx, unitID, buildReadPDU(function, address, count), 2+2*int(count))
	if err != nil {
		return nil, fmt.Errorf("read %d registers at %d: %w", count, address, err)
	}

	values, err := parseReadResponse(pdu, function, count)
	if err != nil {
		return nil, fmt.Errorf("read %d registers at %d: %w", count, address, err)
	}

	return values, nil
}

// roundTrip sends one PDU and reads the response PDU. expectedLen is the
// normal (non-exception) response PDU length. The connection is dropped on
// any failure so the next operation starts clean.
func (c *Client) roundTrip(ctx context.Context, unitID uint8, request []byte, expectedLen int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	var (
		pdu []byte
		err error
	)

	if c.opts.Mode == ModeTCP {
		pdu, err = c.roundTripTCP(unitID, request)
	} else {
		pdu, err = c.roundTripRTU(unitID, request, expectedLen)
	}

	if err != nil {
		_ = c.dropConn()
		return nil, err
	}

	return pdu, nil
}

func (c *Client) roundTripRTU(unitID uint8, request []byte, expectedLen int) ([]byte, error) {
	if _, err := c.conn.Write(buildRTUFrame(unitID, request)); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	// Unit address + function code + second byte (byte count, exception
	// code or address high byte) tell how much is still to come.
	header := make([]byte, 3)
	if err := readFull(c.conn, header); err != nil {
		return nil, fmt.Errorf("read response header: %w", err)
	}

	var remaining int

	switch {
	case header[1]&exceptionBit != 0:
		// Exception: only the CRC follows.
		remaining = 2
	case header[1] == funcReadHolding || header[1] == funcReadInput:
		// Byte count, already-read first byte excluded, plus CRC.
		remaining = int(header[2]) + 2
	default:
		// Fixed-size echo frames: total length is unit + PDU + CRC,
		// minus the header already read.
		remaining = expectedLen + 3 - len(header)
	}

	rest := make([]byte, remaining)
	if err := readFull(c.conn, rest); err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return verifyRTUFrame(append(header, rest...))
}

// readFull fills buf completely. A zero-byte read is reported as a timeout:
// the serial layer signals an expired read deadline that way instead of
// returning an error.
func readFull(r io.Reader, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := r.Read(buf[read:])
		if err != nil {
			return err
		}

		if n == 0 {
			return fmt.Errorf("%w: timed out after %d of %d bytes", errShortFrame, read, len(buf))
		}

		read += n
	}

	return nil
}

func (c *Client) roundTripTCP(unitID uint8, request []byte) ([]byte, error) {
	if conn, ok := c.conn.(net.Conn); ok {
		_ = conn.SetDeadline(time.Now().Add(c.opts.Timeout))
	}

	c.transactionID++

	if _, err := c.conn.Write(buildMBAP(c.transactionID, unitID, request)); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	header := make([]byte, 6)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return nil, fmt.Errorf("read response header: %w", err)
	}

	length := int(binary.BigEndian.Uint16(header[4:6]))
	if length < 2 {
		return nil, fmt.Errorf("%w: MBAP length %d", errShortFrame, length)
	}

	// Unit address plus PDU.
	body := make([]byte, length)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body[1:], nil
}

// ensureConnected opens the serial port or TCP socket if needed.
func (c *Client) ensureConnected() error {
	if c.conn != nil {
		return nil
	}

	if c.opts.Mode == ModeTCP {
		conn, err := net.DialTimeout("tcp", c.opts.Address, c.opts.Timeout)
		if err != nil {
			return fmt.Errorf("dial %s: %w", c.opts.Address, err)
		}

		c.conn = conn

		return nil
	}

	mode := &serial.Mode{
		BaudRate: c.opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(c.opts.SerialPort, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.opts.SerialPort, err)
	}

	if err = port.SetReadTimeout(c.opts.Timeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}

	c.conn = port

	return nil
}

// dropConn closes and forgets the current connection.
func (c *Client) dropConn() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil

	return err
}
