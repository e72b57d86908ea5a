package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Modbus function codes used by the gateway.
const (
	funcReadHolding byte = 0x03
	funcReadInput   byte = 0x04
	funcWriteSingle byte = 0x06
)

// exceptionBit marks an exception response in the returned function code.
const exceptionBit byte = 0x80

var (
	// errShortFrame is returned when a response is truncated.
	errShortFrame = errors.New("short frame")
	// errCRCMismatch is returned when an RTU frame fails its checksum.
	errCRCMismatch = errors.New("crc mismatch")
	// errFunctionMismatch is returned when a response echoes an unexpected
	// function code.
	errFunctionMismatch = errors.New("function code mismatch")
)

// ExceptionError is a Modbus exception response from the slave.
type ExceptionError struct {
	// Function is the requested function code.
	Function byte
	// Code is the exception code reported by the slave.
	Code byte
}

// Error implements the error interface.
func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: function 0x%02X, code 0x%02X", e.Function, e.Code)
}

// buildReadPDU builds the PDU of a register read (function 0x03 or 0x04)
// for count registers starting at a 0-based address.
func buildReadPDU(function byte, address, count uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = function
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], count)

	return pdu
}

// buildWritePDU builds the PDU of a single register write (function 0x06)
// at a 0-based address.
func buildWritePDU(address, value uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = funcWriteSingle
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], value)

	return pdu
}

// buildRTUFrame wraps a PDU with the unit address and trailing CRC,
// low byte first.
func buildRTUFrame(unitID byte, pdu []byte) []byte {
	frame := make([]byte, 0, len(pdu)+3)
	frame = append(frame, unitID)
	frame = append(frame, pdu...)

	crc := crc16(frame)

	return append(frame, byte(crc&0xFF), byte(crc>>8))
}

// verifyRTUFrame checks the CRC of a complete RTU frame and returns the PDU.
func verifyRTUFrame(frame []byte) ([]byte, error) {
	if len(frame) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", errShortFrame, len(frame))
	}

	payload := frame[:len(frame)-2]
	want := crc16(payload)
	got := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8

	if want != got {
		return nil, fmt.Errorf("%w: computed 0x%04X, received 0x%04X", errCRCMismatch, want, got)
	}

	// Strip the unit address.
	return payload[1:], nil
}

// buildMBAP wraps a PDU with a Modbus TCP header.
func buildMBAP(transactionID uint16, unitID byte, pdu []byte) []byte {
	frame := make([]byte, 7, 7+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], transactionID)
	// Protocol identifier is always 0.
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(pdu)+1)) //nolint:gosec // PDU length is bounded by the protocol.
	frame[6] = unitID

	return append(frame, pdu...)
}

// parseReadResponse validates a read response PDU and decodes the register
// values. count is the number of registers requested.
func parseReadResponse(pdu []byte, function byte, count uint16) ([]uint16, error) {
	if len(pdu) < 2 {
		return nil, fmt.Errorf("%w: %d byte PDU", errShortFrame, len(pdu))
	}

	if pdu[0] == function|exceptionBit {
		return nil, &ExceptionError{Function: function, Code: pdu[1]}
	}

	if pdu[0] != function {
		return nil, fmt.Errorf("%w: sent 0x%02X, received 0x%02X", errFunctionMismatch, function, pdu[0])
	}

	byteCount := int(pdu[1])
	if byteCount != int(count)*2 || len(pdu) < 2+byteCount {
		return nil, fmt.Errorf("%w: byte count %d for %d registers", errShortFrame, byteCount, count)
	}

	values := make([]uint16, count)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(pdu[2+2*i : 4+2*i])
	}

	return values, nil
}

// parseWriteResponse validates the echo of a single register write.
func parseWriteResponse(pdu []byte, address, value uint16) error {
	if len(pdu) < 2 {
		return fmt.Errorf("%w: %d byte PDU", errShortFrame, len(pdu))
	}

	if pdu[0] == funcWriteSingle|exceptionBit {
		return &ExceptionError{Function: funcWriteSingle, Code: pdu[1]}
	}

	if pdu[0] != funcWriteSingle {
		return fmt.Errorf("%w: sent 0x%02X, received 0x%02X", errFunctionMismatch, funcWriteSingle, pdu[0])
	}

	if len(pdu) < 5 {
		return fmt.Errorf("%w: %d byte PDU", errShortFrame, len(pdu))
	}

	echoAddress := binary.BigEndian.Uint16(pdu[1:3])
	echoValue := binary.BigEndian.Uint16(pdu[3:5])

	if echoAddress != address || echoValue != value {
		return fmt.Errorf("write echo mismatch: sent %d=%d, received %d=%d",
			address, value, echoAddress, echoValue)
	}

	return nil
}
