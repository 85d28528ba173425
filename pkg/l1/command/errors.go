package command

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull indicates the command queue has no free entry.
	ErrQueueFull = errors.New("command queue full")
	// ErrReplyOverflow indicates a strict reply grew beyond the maximum payload.
	ErrReplyOverflow = errors.New("reply exceeds maximum payload")
	// ErrOutboundFull indicates too many payloads wait for the transmitter.
	ErrOutboundFull = errors.New("outbound payloads full")
	// ErrNoReply indicates there is nothing to transmit.
	ErrNoReply = errors.New("no reply pending")
)

// UnknownOpcodeError is returned when a payload names an opcode that isn't
// registered.
type UnknownOpcodeError struct {
	Opcode Opcode
}

// Error implements error.
func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02x", byte(e.Opcode))
}

// ErrExecutionOver indicates the execution already finished, by its handler
// or by the watchdog.
var ErrExecutionOver = errors.New("command execution already finished")

var (
	// ErrBlockType indicates an auto-collection block type out of range.
	ErrBlockType = errors.New("invalid block type")
	// ErrPeriodTooShort indicates an auto-collection period below the minimum.
	ErrPeriodTooShort = errors.New("auto-collection period too short")
)
