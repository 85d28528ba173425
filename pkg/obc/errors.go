package obc

import "errors"

var (
	// ErrBlockType indicates a block type out of range.
	ErrBlockType = errors.New("invalid block type")
	// ErrSubsystem indicates a subsystem that can't serve the request.
	ErrSubsystem = errors.New("invalid subsystem")
	// ErrAddress indicates a memory address out of range.
	ErrAddress = errors.New("address out of range")
	// ErrNoBlock indicates the block hasn't been collected.
	ErrNoBlock = errors.New("block not available")
	// ErrOpcode indicates an opcode that doesn't fit in the uplink.
	ErrOpcode = errors.New("opcode out of range")
	// ErrNoLink indicates the node has no UART to the transceiver.
	ErrNoLink = errors.New("transceiver link not configured")
)
