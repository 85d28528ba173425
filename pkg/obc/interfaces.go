package obc

import (
	"context"
	"time"
)

// Clock is the real-time clock.
type Clock interface {
	Now() time.Time
	Set(time.Time) error
}

// Memory is the flash and EEPROM storage of collected blocks.
type Memory interface {
	ReadBytes(addr uint32, n int) ([]byte, error)
	EraseSector(addr uint32) error
	EraseBlock(addr uint32) error
	EraseAll() error
	WriteBlock(blockType uint32, b Block) error
	ReadBlock(blockType, blockNum uint32) (Block, error)
	BlockCount(blockType uint32) (uint32, error)
	SetBlockCount(blockType, n uint32) error
	ReadEEPROM(addr uint32) (uint32, error)
	EraseEEPROM(addr uint32) error
}

// Bus sends messages to a subsystem. Responses come back through
// Commands.HandleMessage.
type Bus interface {
	Send(ctx context.Context, to Subsystem, msg Message) error
}

// Resetter restarts the OBC.
type Resetter interface {
	Reset()
}

// RestartInfo describes the latest restart of the OBC.
type RestartInfo struct {
	Count  uint32
	Reason byte
	Time   time.Time
}
