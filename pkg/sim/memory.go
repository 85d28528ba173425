package sim

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/robotalks/obc.go/pkg/obc"
)

// Flash geometry.
const (
	FlashSize  = 0x600000
	SectorSize = 0x1000
	EraseSize  = 0x10000
	EEPROMSize = 0x400
)

// SectionStart is the flash address of the first block of each type.
var SectionStart = [obc.NumBlockTypes]uint32{0x000000, 0x200000, 0x400000}

// BlockCountAddr is the EEPROM address holding the block count of each type.
var BlockCountAddr = [obc.NumBlockTypes]uint32{0x00, 0x04, 0x08}

// Memory simulates the flash and EEPROM. Erased bytes read 0xFF.
type Memory struct {
	lock   sync.Mutex
	flash  []byte
	eeprom []byte

	ObjectsChangeCaster
}

// NewMemory creates an erased Memory with all block counts at 0.
func NewMemory() *Memory {
	m := &Memory{
		flash:  make([]byte, FlashSize),
		eeprom: make([]byte, EEPROMSize),
	}
	fill(m.flash)
	fill(m.eeprom)
	for _, addr := range BlockCountAddr {
		binary.BigEndian.PutUint32(m.eeprom[addr:], 0)
	}
	return m
}

func fill(b []byte) {
	for n := range b {
		b[n] = 0xFF
	}
}

// Name implements Object.
func (m *Memory) Name() string {
	return "memory"
}

// State implements Object.
func (m *Memory) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	counts := make([]uint32, obc.NumBlockTypes)
	for n, addr := range BlockCountAddr {
		counts[n] = binary.BigEndian.Uint32(m.eeprom[addr:])
	}
	return State{"blocks": counts}
}

func (m *Memory) changed() {
	m.ObjectsChanged(m)
}

// BlockSize is the flash footprint of a block of the type.
func BlockSize(blockType uint32) uint32 {
	return uint32(obc.HeaderLen + 3*obc.FieldCounts[blockType])
}

func sectionEnd(blockType uint32) uint32 {
	if blockType+1 < obc.NumBlockTypes {
		return SectionStart[blockType+1]
	}
	return FlashSize
}

// BlockAddr is the flash address of a block.
func BlockAddr(blockType, blockNum uint32) (uint32, error) {
	if blockType >= obc.NumBlockTypes {
		return 0, obc.ErrBlockType
	}
	size := BlockSize(blockType)
	if blockNum >= (sectionEnd(blockType)-SectionStart[blockType])/size {
		return 0, fmt.Errorf("%s block %d: %w", obc.BlockTypeName(blockType), blockNum, obc.ErrAddress)
	}
	return SectionStart[blockType] + blockNum*size, nil
}

// ReadBytes implements obc.Memory.
func (m *Memory) ReadBytes(addr uint32, n int) ([]byte, error) {
	if n < 0 || uint64(addr)+uint64(n) > FlashSize {
		return nil, obc.ErrAddress
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]byte(nil), m.flash[addr:addr+uint32(n)]...), nil
}

func (m *Memory) erase(addr, size uint32) error {
	if addr >= FlashSize {
		return obc.ErrAddress
	}
	addr -= addr % size
	m.lock.Lock()
	fill(m.flash[addr : addr+size])
	m.lock.Unlock()
	m.changed()
	return nil
}

// EraseSector implements obc.Memory.
func (m *Memory) EraseSector(addr uint32) error {
	return m.erase(addr, SectorSize)
}

// EraseBlock implements obc.Memory.
func (m *Memory) EraseBlock(addr uint32) error {
	return m.erase(addr, EraseSize)
}

// EraseAll implements obc.Memory.
func (m *Memory) EraseAll() error {
	m.lock.Lock()
	fill(m.flash)
	m.lock.Unlock()
	m.changed()
	return nil
}

// WriteBlock implements obc.Memory. Like flash, writing only clears bits.
func (m *Memory) WriteBlock(blockType uint32, b obc.Block) error {
	addr, err := BlockAddr(blockType, b.Header.BlockNum)
	if err != nil {
		return err
	}
	if len(b.Fields) != obc.FieldCounts[blockType] {
		return fmt.Errorf("%d fields for %s: %w", len(b.Fields), obc.BlockTypeName(blockType), obc.ErrBlockType)
	}
	data := b.Bytes()
	m.lock.Lock()
	for n, v := range data {
		m.flash[addr+uint32(n)] &= v
	}
	m.lock.Unlock()
	m.changed()
	return nil
}

// ReadBlock implements obc.Memory.
func (m *Memory) ReadBlock(blockType, blockNum uint32) (obc.Block, error) {
	addr, err := BlockAddr(blockType, blockNum)
	if err != nil {
		return obc.Block{}, err
	}
	data, err := m.ReadBytes(addr, int(BlockSize(blockType)))
	if err != nil {
		return obc.Block{}, err
	}
	b, _ := obc.DecodeBlock(data, obc.FieldCounts[blockType])
	return b, nil
}

func eepromAddr(addr uint32) error {
	if addr%4 != 0 || addr+4 > EEPROMSize {
		return obc.ErrAddress
	}
	return nil
}

// ReadEEPROM implements obc.Memory.
func (m *Memory) ReadEEPROM(addr uint32) (uint32, error) {
	if err := eepromAddr(addr); err != nil {
		return 0, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	return binary.BigEndian.Uint32(m.eeprom[addr:]), nil
}

// WriteEEPROM stores a word.
func (m *Memory) WriteEEPROM(addr, v uint32) error {
	if err := eepromAddr(addr); err != nil {
		return err
	}
	m.lock.Lock()
	binary.BigEndian.PutUint32(m.eeprom[addr:], v)
	m.lock.Unlock()
	m.changed()
	return nil
}

// EraseEEPROM implements obc.Memory.
func (m *Memory) EraseEEPROM(addr uint32) error {
	return m.WriteEEPROM(addr, 0xFFFFFFFF)
}

// BlockCount implements obc.Memory.
func (m *Memory) BlockCount(blockType uint32) (uint32, error) {
	if blockType >= obc.NumBlockTypes {
		return 0, obc.ErrBlockType
	}
	return m.ReadEEPROM(BlockCountAddr[blockType])
}

// SetBlockCount implements obc.Memory.
func (m *Memory) SetBlockCount(blockType, n uint32) error {
	if blockType >= obc.NumBlockTypes {
		return obc.ErrBlockType
	}
	return m.WriteEEPROM(BlockCountAddr[blockType], n)
}
