package obc

import (
	"fmt"
	"time"

	"github.com/robotalks/obc.go/pkg/l1/command"
)

// Command opcodes.
const (
	OpPing              command.Opcode = 0x00
	OpGetSubsysStatus   command.Opcode = 0x01
	OpGetRTC            command.Opcode = 0x02
	OpSetRTC            command.Opcode = 0x03
	OpReadMemBytes      command.Opcode = 0x04
	OpEraseMemPhySector command.Opcode = 0x05
	OpColBlock          command.Opcode = 0x06
	OpReadLocBlock      command.Opcode = 0x07
	OpReadMemBlock      command.Opcode = 0x08
	OpAutoDataColEnable command.Opcode = 0x09
	OpAutoDataColPeriod command.Opcode = 0x0A
	OpAutoDataColResync command.Opcode = 0x0B
	OpPayActMotors      command.Opcode = 0x0E
	OpResetSubsys       command.Opcode = 0x0F
	OpEPSCAN            command.Opcode = 0x10
	OpPAYCAN            command.Opcode = 0x11
	OpReadEEPROM        command.Opcode = 0x12
	OpGetCurBlockNum    command.Opcode = 0x13
	OpSetCurBlockNum    command.Opcode = 0x14
	OpEraseEEPROM       command.Opcode = 0x17
	OpEraseAllMem       command.Opcode = 0x19
	OpEraseMemPhyBlock  command.Opcode = 0x1A
)

var opcodeNames = map[command.Opcode]string{
	OpPing:              "PING",
	OpGetSubsysStatus:   "GET_SUBSYS_STATUS",
	OpGetRTC:            "GET_RTC",
	OpSetRTC:            "SET_RTC",
	OpReadMemBytes:      "READ_MEM_BYTES",
	OpEraseMemPhySector: "ERASE_MEM_PHY_SECTOR",
	OpColBlock:          "COL_BLOCK",
	OpReadLocBlock:      "READ_LOC_BLOCK",
	OpReadMemBlock:      "READ_MEM_BLOCK",
	OpAutoDataColEnable: "AUTO_DATA_COL_ENABLE",
	OpAutoDataColPeriod: "AUTO_DATA_COL_PERIOD",
	OpAutoDataColResync: "AUTO_DATA_COL_RESYNC",
	OpPayActMotors:      "PAY_ACT_MOTORS",
	OpResetSubsys:       "RESET_SUBSYS",
	OpEPSCAN:            "EPS_CAN",
	OpPAYCAN:            "PAY_CAN",
	OpReadEEPROM:        "READ_EEPROM",
	OpGetCurBlockNum:    "GET_CUR_BLOCK_NUM",
	OpSetCurBlockNum:    "SET_CUR_BLOCK_NUM",
	OpEraseEEPROM:       "ERASE_EEPROM",
	OpEraseAllMem:       "ERASE_ALL_MEM",
	OpEraseMemPhyBlock:  "ERASE_MEM_PHY_BLOCK",
}

// OpcodeName names an opcode, or formats it in hex when unknown.
func OpcodeName(op command.Opcode) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return op.String()
}

// ParseOpcode finds the opcode of a name.
func ParseOpcode(name string) (command.Opcode, bool) {
	for op, n := range opcodeNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// Block types.
const (
	BlockEPSHK uint32 = iota
	BlockPAYHK
	BlockPAYOpt

	NumBlockTypes = 3
)

// FieldCounts is the number of fields in a block, by block type.
var FieldCounts = [NumBlockTypes]int{12, 3, 32}

// BlockTypeName names a block type.
func BlockTypeName(blockType uint32) string {
	switch blockType {
	case BlockEPSHK:
		return "EPS_HK"
	case BlockPAYHK:
		return "PAY_HK"
	case BlockPAYOpt:
		return "PAY_OPT"
	}
	return "UNKNOWN"
}

// Auto-collection defaults, in seconds.
var DefaultAutoPeriods = []uint32{60, 120, 300}

// MinAutoPeriod is the shortest settable auto-collection period.
const MinAutoPeriod uint32 = 60

// Subsystem identifies a board on the satellite.
type Subsystem byte

// Subsystems.
const (
	SubsysOBC Subsystem = 0
	SubsysEPS Subsystem = 1
	SubsysPAY Subsystem = 2
)

// String implements fmt.Stringer.
func (s Subsystem) String() string {
	switch s {
	case SubsysOBC:
		return "OBC"
	case SubsysEPS:
		return "EPS"
	case SubsysPAY:
		return "PAY"
	}
	return "UNKNOWN"
}

// Block is a collected housekeeping or science block.
type Block struct {
	Header Header
	Fields []uint32
}

// String implements fmt.Stringer.
func (b Block) String() string {
	return fmt.Sprintf("#%d error=%d %s %v", b.Header.BlockNum, b.Header.Error,
		b.Header.Time.Format(time.RFC3339), b.Fields)
}

// Header precedes the fields of a Block.
type Header struct {
	BlockNum uint32
	Error    byte
	Time     time.Time
}

// HeaderLen is the encoded size of a Header.
const HeaderLen = 10

// Bytes encodes the header: block number (24-bit), error, yy mm dd hh mm ss.
func (h Header) Bytes() []byte {
	b := make([]byte, 0, HeaderLen)
	b = append(b, byte(h.BlockNum>>16), byte(h.BlockNum>>8), byte(h.BlockNum), h.Error)
	return append(b, DateTimeBytes(h.Time)...)
}

// Bytes encodes the header followed by every field as 24-bit big-endian.
func (b Block) Bytes() []byte {
	buf := b.Header.Bytes()
	for _, f := range b.Fields {
		buf = append(buf, byte(f>>16), byte(f>>8), byte(f))
	}
	return buf
}

// DecodeBlock decodes a block with the given number of fields.
func DecodeBlock(data []byte, fields int) (Block, bool) {
	if len(data) < HeaderLen+3*fields {
		return Block{}, false
	}
	b := Block{
		Header: Header{
			BlockNum: uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]),
			Error:    data[3],
		},
		Fields: make([]uint32, fields),
	}
	b.Header.Time, _ = ParseDateTime(data[4:10])
	for n := range b.Fields {
		p := data[HeaderLen+3*n:]
		b.Fields[n] = uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	}
	return b, true
}

// DateTimeBytes encodes t as yy mm dd hh mm ss.
func DateTimeBytes(t time.Time) []byte {
	return []byte{
		byte(t.Year() % 100), byte(t.Month()), byte(t.Day()),
		byte(t.Hour()), byte(t.Minute()), byte(t.Second()),
	}
}

// ParseDateTime decodes yy mm dd hh mm ss, years counted from 2000.
func ParseDateTime(b []byte) (time.Time, bool) {
	if len(b) < 6 {
		return time.Time{}, false
	}
	yy, mo, dd, hh, mi, ss := int(b[0]), int(b[1]), int(b[2]), int(b[3]), int(b[4]), int(b[5])
	if yy > 99 || mo < 1 || mo > 12 || dd < 1 || dd > 31 || hh > 23 || mi > 59 || ss > 59 {
		return time.Time{}, false
	}
	t := time.Date(2000+yy, time.Month(mo), dd, hh, mi, ss, 0, time.UTC)
	if t.Day() != dd {
		return time.Time{}, false
	}
	return t, true
}

// PackDate packs the date of t into yy<<16 | mm<<8 | dd.
func PackDate(t time.Time) uint32 {
	b := DateTimeBytes(t)
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// PackTime packs the time of day of t into hh<<16 | mm<<8 | ss.
func PackTime(t time.Time) uint32 {
	b := DateTimeBytes(t)
	return uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5])
}

// UnpackDateTime reverses PackDate and PackTime.
func UnpackDateTime(date, tod uint32) (time.Time, bool) {
	return ParseDateTime([]byte{
		byte(date >> 16), byte(date >> 8), byte(date),
		byte(tod >> 16), byte(tod >> 8), byte(tod),
	})
}
