package obc

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/obc.go/pkg/l1/command"
)

// Commands implements the OBC command set.
type Commands struct {
	Clock    Clock
	Memory   Memory
	Bus      Bus
	Resetter Resetter
	Restart  RestartInfo

	// AutoCollector and Queue are set by Install.
	AutoCollector *command.AutoCollector
	Queue         *command.Queue

	started time.Time
	colRef  command.Ref

	lock    sync.Mutex
	waiting *canWait
	local   [NumBlockTypes]*Block
}

// New creates Commands.
func New(clock Clock, mem Memory, bus Bus) *Commands {
	return &Commands{Clock: clock, Memory: mem, Bus: bus, started: time.Now()}
}

// Descriptors lists every command.
func (c *Commands) Descriptors() []command.Descriptor {
	descs := []command.Descriptor{
		{Opcode: OpPing, Handler: command.HandlerFunc(c.ping)},
		{Opcode: OpGetSubsysStatus, Handler: command.HandlerFunc(c.getSubsysStatus)},
		{Opcode: OpGetRTC, Handler: command.HandlerFunc(c.getRTC)},
		{Opcode: OpSetRTC, Handler: command.HandlerFunc(c.setRTC)},
		{Opcode: OpReadMemBytes, Handler: command.HandlerFunc(c.readMemBytes)},
		{Opcode: OpEraseMemPhySector, Handler: c.eraser(func(e *command.Exec) error {
			return c.Memory.EraseSector(e.Args.Arg1)
		})},
		{Opcode: OpColBlock, Handler: command.HandlerFunc(c.colBlock)},
		{Opcode: OpReadLocBlock, Handler: command.HandlerFunc(c.readLocBlock)},
		{Opcode: OpReadMemBlock, Handler: command.HandlerFunc(c.readMemBlock)},
		{Opcode: OpAutoDataColEnable, Handler: command.HandlerFunc(c.autoDataColEnable)},
		{Opcode: OpAutoDataColPeriod, Handler: command.HandlerFunc(c.autoDataColPeriod)},
		{Opcode: OpAutoDataColResync, Handler: command.HandlerFunc(c.autoDataColResync)},
		{Opcode: OpPayActMotors, Handler: command.HandlerFunc(c.payActMotors)},
		{Opcode: OpResetSubsys, Handler: command.HandlerFunc(c.resetSubsys)},
		{Opcode: OpEPSCAN, Handler: c.passThrough(SubsysEPS)},
		{Opcode: OpPAYCAN, Handler: c.passThrough(SubsysPAY)},
		{Opcode: OpReadEEPROM, Handler: command.HandlerFunc(c.readEEPROM)},
		{Opcode: OpGetCurBlockNum, Handler: command.HandlerFunc(c.getCurBlockNum)},
		{Opcode: OpSetCurBlockNum, Handler: command.HandlerFunc(c.setCurBlockNum)},
		{Opcode: OpEraseEEPROM, Handler: c.eraser(func(e *command.Exec) error {
			return c.Memory.EraseEEPROM(e.Args.Arg1)
		})},
		{Opcode: OpEraseAllMem, Handler: c.eraser(func(*command.Exec) error {
			return c.Memory.EraseAll()
		})},
		{Opcode: OpEraseMemPhyBlock, Handler: c.eraser(func(e *command.Exec) error {
			return c.Memory.EraseBlock(e.Args.Arg1)
		})},
	}
	for n := range descs {
		descs[n].Name = OpcodeName(descs[n].Opcode)
	}
	return descs
}

// Install wires the commands to an executor whose registry holds
// Descriptors, and creates the auto-collector for COL_BLOCK.
func (c *Commands) Install(x *command.Executor) *command.AutoCollector {
	c.colRef, _ = x.Registry.Lookup(OpColBlock)
	c.Queue = x.Queue
	c.AutoCollector = command.NewAutoCollector(x, c.colRef, DefaultAutoPeriods...)
	c.AutoCollector.MinPeriod = MinAutoPeriod
	c.AutoCollector.Acker, c.AutoCollector.Opcode = x.Composer, OpColBlock
	return c.AutoCollector
}

func uint32Bytes(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func fail(e *command.Exec, err error) {
	glog.Warningf("%s(%d, %d): %v", e.Name, e.Args.Arg1, e.Args.Arg2, err)
	e.Finish(false)
}

// respondOrFail replies with data when err is nil.
func respondOrFail(e *command.Exec, err error, data ...byte) {
	if err != nil {
		fail(e, err)
		return
	}
	e.Respond(data...)
}

func (c *Commands) ping(e *command.Exec) {
	e.Respond()
}

func (c *Commands) getSubsysStatus(e *command.Exec) {
	if Subsystem(e.Args.Arg1) != SubsysOBC {
		c.pingSubsystem(e, Subsystem(e.Args.Arg1))
		return
	}
	r := e.Reply().
		AppendUint32(c.Restart.Count).
		Append(c.Restart.Reason).
		Append(DateTimeBytes(c.Restart.Time)...).
		AppendUint32(uint32(time.Since(c.started) / time.Second))
	e.Finish(e.Send(r) == nil)
}

func (c *Commands) getRTC(e *command.Exec) {
	e.Respond(DateTimeBytes(c.Clock.Now())...)
}

func (c *Commands) setRTC(e *command.Exec) {
	t, ok := UnpackDateTime(e.Args.Arg1, e.Args.Arg2)
	if !ok {
		fail(e, ErrAddress)
		return
	}
	respondOrFail(e, c.Clock.Set(t))
}

func (c *Commands) readMemBytes(e *command.Exec) {
	r := e.Reply()
	count := int(e.Args.Arg2)
	if count <= 0 || count > r.Room() {
		fail(e, ErrAddress)
		return
	}
	data, err := c.Memory.ReadBytes(e.Args.Arg1, count)
	if err != nil {
		fail(e, err)
		return
	}
	e.Finish(e.Send(r.Append(data...)) == nil)
}

func (c *Commands) eraser(fn func(*command.Exec) error) command.Handler {
	return command.HandlerFunc(func(e *command.Exec) {
		respondOrFail(e, fn(e))
	})
}

func (c *Commands) sendBlock(e *command.Exec, b *Block) {
	e.Finish(e.Send(e.Reply().Append(b.Bytes()...)) == nil)
}

func (c *Commands) readLocBlock(e *command.Exec) {
	if e.Args.Arg1 >= NumBlockTypes {
		fail(e, ErrBlockType)
		return
	}
	c.lock.Lock()
	b := c.local[e.Args.Arg1]
	c.lock.Unlock()
	if b == nil {
		fail(e, ErrNoBlock)
		return
	}
	c.sendBlock(e, b)
}

func (c *Commands) readMemBlock(e *command.Exec) {
	if e.Args.Arg1 >= NumBlockTypes {
		fail(e, ErrBlockType)
		return
	}
	b, err := c.Memory.ReadBlock(e.Args.Arg1, e.Args.Arg2)
	if err != nil {
		fail(e, err)
		return
	}
	c.sendBlock(e, &b)
}

func (c *Commands) autoDataColEnable(e *command.Exec) {
	respondOrFail(e, c.AutoCollector.Enable(e.Args.Arg1, e.Args.Arg2 != 0))
}

func (c *Commands) autoDataColPeriod(e *command.Exec) {
	respondOrFail(e, c.AutoCollector.SetPeriod(e.Args.Arg1, e.Args.Arg2))
}

func (c *Commands) autoDataColResync(e *command.Exec) {
	c.AutoCollector.ResyncAll()
	e.Respond()
}

func (c *Commands) readEEPROM(e *command.Exec) {
	v, err := c.Memory.ReadEEPROM(e.Args.Arg1)
	respondOrFail(e, err, uint32Bytes(v)...)
}

func (c *Commands) getCurBlockNum(e *command.Exec) {
	n, err := c.Memory.BlockCount(e.Args.Arg1)
	respondOrFail(e, err, uint32Bytes(n)...)
}

func (c *Commands) setCurBlockNum(e *command.Exec) {
	respondOrFail(e, c.Memory.SetBlockCount(e.Args.Arg1, e.Args.Arg2))
}

func (c *Commands) resetSubsys(e *command.Exec) {
	switch to := Subsystem(e.Args.Arg1); to {
	case SubsysOBC:
		e.Respond()
		if c.Resetter != nil {
			glog.Warning("OBC reset requested")
			c.Resetter.Reset()
		}
	case SubsysEPS:
		respondOrFail(e, c.Bus.Send(e.Context, to, NewMessage(CANEPSCtrl, CtrlReset, 0)))
	case SubsysPAY:
		respondOrFail(e, c.Bus.Send(e.Context, to, NewMessage(CANPAYCtrl, CtrlReset, 0)))
	default:
		fail(e, ErrSubsystem)
	}
}

// LocalBlock returns the latest collected block of a type.
func (c *Commands) LocalBlock(blockType uint32) (Block, bool) {
	if blockType >= NumBlockTypes {
		return Block{}, false
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if b := c.local[blockType]; b != nil {
		return *b, true
	}
	return Block{}, false
}

// canWait is the CAN response the running command is waiting for.
type canWait struct {
	exec   *command.Exec
	from   Subsystem
	opcode byte
	field  byte
	fn     func(Message)
}

// await sends msg and calls fn with the matching response, unless the
// execution is over by then.
func (c *Commands) await(e *command.Exec, to Subsystem, msg Message, fn func(Message)) {
	c.lock.Lock()
	c.waiting = &canWait{exec: e, from: to, opcode: msg.Opcode(), field: msg.Field(), fn: fn}
	c.lock.Unlock()
	if err := c.Bus.Send(e.Context, to, msg); err != nil {
		c.lock.Lock()
		c.waiting = nil
		c.lock.Unlock()
		fail(e, err)
	}
}

// HandleMessage accepts a message from a subsystem.
func (c *Commands) HandleMessage(from Subsystem, msg Message) {
	c.lock.Lock()
	w := c.waiting
	if w == nil || w.from != from || w.opcode != msg.Opcode() || w.field != msg.Field() || !w.exec.Current() {
		c.lock.Unlock()
		c.dropped(from, msg)
		return
	}
	c.waiting = nil
	c.lock.Unlock()
	w.fn(msg)
}

func (c *Commands) dropped(from Subsystem, msg Message) {
	switch op := msg.Opcode(); {
	case from == SubsysEPS && op == CANEPSHK,
		from == SubsysPAY && (op == CANPAYHK || op == CANPAYOpt):
		blockType := uint32(op)
		if c.Queue != nil && c.Queue.Contains(c.colRef, blockType) {
			glog.V(2).Infof("late %s field %d, collection queued", BlockTypeName(blockType), msg.Field())
			return
		}
	}
	glog.V(2).Infof("unexpected message from %s: %s", from, msg)
}

func (c *Commands) pingSubsystem(e *command.Exec, to Subsystem) {
	var op byte
	switch to {
	case SubsysEPS:
		op = CANEPSCtrl
	case SubsysPAY:
		op = CANPAYCtrl
	default:
		fail(e, ErrSubsystem)
		return
	}
	c.await(e, to, NewMessage(op, CtrlPing, 0), func(m Message) {
		if m.Status() != CANStatusOK {
			e.Finish(false)
			return
		}
		e.Respond(uint32Bytes(m.Data())...)
	})
}

func collectFrom(blockType uint32) (Subsystem, byte) {
	switch blockType {
	case BlockEPSHK:
		return SubsysEPS, CANEPSHK
	case BlockPAYHK:
		return SubsysPAY, CANPAYHK
	}
	return SubsysPAY, CANPAYOpt
}

func (c *Commands) colBlock(e *command.Exec) {
	blockType := e.Args.Arg1
	if blockType >= NumBlockTypes {
		fail(e, ErrBlockType)
		return
	}
	num, err := c.Memory.BlockCount(blockType)
	if err != nil {
		fail(e, err)
		return
	}
	b := &Block{
		Header: Header{BlockNum: num, Time: c.Clock.Now()},
		Fields: make([]uint32, FieldCounts[blockType]),
	}
	to, op := collectFrom(blockType)
	var collect func(field int)
	collect = func(field int) {
		c.await(e, to, NewMessage(op, byte(field), 0), func(m Message) {
			if m.Status() != CANStatusOK {
				b.Header.Error = m.Status()
			}
			b.Fields[field] = m.Data()
			if field+1 < len(b.Fields) {
				collect(field + 1)
				return
			}
			c.storeBlock(e, blockType, b)
		})
	}
	collect(0)
}

func (c *Commands) storeBlock(e *command.Exec, blockType uint32, b *Block) {
	c.lock.Lock()
	c.local[blockType] = b
	c.lock.Unlock()
	if err := c.Memory.WriteBlock(blockType, *b); err != nil {
		fail(e, err)
		return
	}
	if err := c.Memory.SetBlockCount(blockType, b.Header.BlockNum+1); err != nil {
		fail(e, err)
		return
	}
	glog.V(1).Infof("collected %s block %d", BlockTypeName(blockType), b.Header.BlockNum)
	e.Respond(uint32Bytes(b.Header.BlockNum)...)
}

func (c *Commands) payActMotors(e *command.Exec) {
	c.await(e, SubsysPAY, NewMessage(CANPAYCtrl, CtrlActMotors, e.Args.Arg1), func(m Message) {
		if m.Status() != CANStatusOK {
			glog.Warningf("PAY motors: status %d", m.Status())
			e.Finish(false)
			return
		}
		e.Respond()
	})
}

func (c *Commands) passThrough(to Subsystem) command.Handler {
	return command.HandlerFunc(func(e *command.Exec) {
		msg := RawMessage(e.Args.Arg1, e.Args.Arg2)
		c.await(e, to, msg, func(m Message) {
			err := e.Send(e.Reply().Append(m[:]...))
			e.Finish(err == nil && m.Status() == CANStatusOK)
		})
	})
}
