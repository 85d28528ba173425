package sim

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/obc.go/pkg/l0/canbus"
	"github.com/robotalks/obc.go/pkg/obc"
)

// Response statuses of a Board other than obc.CANStatusOK.
const (
	StatusInvalidField  byte = 0x01
	StatusInvalidOpcode byte = 0x02
)

// Board simulates the EPS or PAY board answering OBC requests on CAN.
type Board struct {
	Subsystem obc.Subsystem

	ObjectsChangeCaster

	link    canbus.Link
	lock    sync.Mutex
	fields  map[byte][]uint32
	silence int
	resets  int
	motors  int
}

// NewBoard attaches a board to the link.
func NewBoard(sub obc.Subsystem, link canbus.Link) *Board {
	b := &Board{Subsystem: sub, link: link, fields: make(map[byte][]uint32)}
	switch sub {
	case obc.SubsysEPS:
		b.fields[obc.CANEPSHK] = sampleFields(obc.BlockEPSHK)
	case obc.SubsysPAY:
		b.fields[obc.CANPAYHK] = sampleFields(obc.BlockPAYHK)
		b.fields[obc.CANPAYOpt] = sampleFields(obc.BlockPAYOpt)
	}
	if id, ok := obc.CommandID(sub); ok {
		link.Subscribe(id, b.handleFrame)
	}
	return b
}

func sampleFields(blockType uint32) []uint32 {
	fields := make([]uint32, obc.FieldCounts[blockType])
	for n := range fields {
		fields[n] = (blockType+1)<<16 | uint32(n)
	}
	return fields
}

// Name implements Object.
func (b *Board) Name() string {
	return b.Subsystem.String()
}

// State implements Object.
func (b *Board) State() State {
	b.lock.Lock()
	defer b.lock.Unlock()
	return State{"resets": b.resets, "motors": b.motors}
}

// SetField changes the value reported for a field.
func (b *Board) SetField(opcode, field byte, v uint32) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if fields := b.fields[opcode]; int(field) < len(fields) {
		fields[field] = v
	}
}

// Field returns the value reported for a field.
func (b *Board) Field(opcode, field byte) uint32 {
	b.lock.Lock()
	defer b.lock.Unlock()
	if fields := b.fields[opcode]; int(field) < len(fields) {
		return fields[field]
	}
	return 0
}

// Silence ignores the next n requests.
func (b *Board) Silence(n int) {
	b.lock.Lock()
	b.silence = n
	b.lock.Unlock()
}

// Resets counts reset requests.
func (b *Board) Resets() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.resets
}

// MotorActuations counts motor actuation requests.
func (b *Board) MotorActuations() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.motors
}

func (b *Board) ctrlOpcode() byte {
	if b.Subsystem == obc.SubsysEPS {
		return obc.CANEPSCtrl
	}
	return obc.CANPAYCtrl
}

func (b *Board) handleFrame(f canbus.Frame) {
	msg := obc.Message(f.Data)
	resp, ok := b.handle(msg)
	if !ok {
		return
	}
	id, _ := obc.DataID(b.Subsystem)
	if err := b.link.Publish(canbus.Frame{ID: id, Data: resp}); err != nil {
		glog.Warningf("%s: publish: %v", b.Name(), err)
	}
}

func (b *Board) handle(msg obc.Message) (obc.Message, bool) {
	b.lock.Lock()
	if b.silence > 0 {
		b.silence--
		b.lock.Unlock()
		return msg, false
	}
	changed := false
	defer func() {
		b.lock.Unlock()
		if changed {
			b.ObjectsChanged(b)
		}
	}()

	if fields, ok := b.fields[msg.Opcode()]; ok {
		if int(msg.Field()) >= len(fields) {
			return msg.WithStatus(StatusInvalidField, 0), true
		}
		return msg.WithStatus(obc.CANStatusOK, fields[msg.Field()]), true
	}
	if msg.Opcode() != b.ctrlOpcode() {
		return msg.WithStatus(StatusInvalidOpcode, 0), true
	}
	switch msg.Field() {
	case obc.CtrlPing:
		return msg.WithStatus(obc.CANStatusOK, uint32(b.resets)), true
	case obc.CtrlReset:
		b.resets++
		changed = true
		glog.Infof("%s: reset", b.Name())
		return msg, false
	case obc.CtrlActMotors:
		if b.Subsystem != obc.SubsysPAY {
			break
		}
		b.motors++
		changed = true
		return msg.WithStatus(obc.CANStatusOK, msg.Data()), true
	}
	return msg.WithStatus(StatusInvalidField, 0), true
}
