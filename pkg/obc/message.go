package obc

import (
	"encoding/binary"
	"fmt"
)

// CAN message opcodes.
const (
	CANEPSHK   byte = 0x00
	CANPAYHK   byte = 0x01
	CANPAYOpt  byte = 0x02
	CANEPSCtrl byte = 0x03
	CANPAYCtrl byte = 0x04
)

// Control fields of CANEPSCtrl and CANPAYCtrl.
const (
	CtrlPing      byte = 0x00
	CtrlReset     byte = 0x01
	CtrlActMotors byte = 0x02
)

// CANStatusOK is the status of a successful response.
const CANStatusOK byte = 0x00

// Message is the 8-byte payload exchanged with the subsystems:
// [opcode][field][status][0][data BE x4].
type Message [8]byte

// NewMessage builds a request. The OBC never sets the status.
func NewMessage(opcode, field byte, data uint32) (m Message) {
	m[0], m[1] = opcode, field
	binary.BigEndian.PutUint32(m[4:], data)
	return
}

// RawMessage builds a message from the two command arguments.
func RawMessage(arg1, arg2 uint32) (m Message) {
	binary.BigEndian.PutUint32(m[0:], arg1)
	binary.BigEndian.PutUint32(m[4:], arg2)
	return
}

// Opcode is byte 0.
func (m Message) Opcode() byte { return m[0] }

// Field is byte 1.
func (m Message) Field() byte { return m[1] }

// Status is byte 2.
func (m Message) Status() byte { return m[2] }

// Data is bytes 4-7.
func (m Message) Data() uint32 { return binary.BigEndian.Uint32(m[4:]) }

// WithStatus returns a response to m.
func (m Message) WithStatus(status byte, data uint32) Message {
	m[2] = status
	binary.BigEndian.PutUint32(m[4:], data)
	return m
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("op=%02x field=%02x status=%02x data=%08x", m[0], m[1], m[2], m.Data())
}
