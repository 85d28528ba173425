package command

import (
	"encoding/binary"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/obc.go/pkg/l0/comm"
)

// ReplyHeaderLen is the size of the opcode and argument echo that starts
// every reply.
const ReplyHeaderLen = comm.UplinkPayloadLen

// Reply is a downlink payload under construction.
type Reply struct {
	buf     []byte
	max     int
	strict  bool
	dropped int
}

// Append adds bytes. Bytes beyond the maximum payload are dropped.
func (r *Reply) Append(b ...byte) *Reply {
	room := r.max - len(r.buf)
	if room < 0 {
		room = 0
	}
	if len(b) > room {
		r.dropped += len(b) - room
		b = b[:room]
	}
	r.buf = append(r.buf, b...)
	return r
}

// AppendUint24 adds the low 24 bits of v, big-endian.
func (r *Reply) AppendUint24(v uint32) *Reply {
	return r.Append(byte(v>>16), byte(v>>8), byte(v))
}

// AppendUint32 adds v big-endian.
func (r *Reply) AppendUint32(v uint32) *Reply {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return r.Append(b[:]...)
}

// Len is the current payload length.
func (r *Reply) Len() int {
	return len(r.buf)
}

// Room is the number of bytes that can still be appended.
func (r *Reply) Room() int {
	return r.max - len(r.buf)
}

// Dropped is the number of bytes discarded by Append.
func (r *Reply) Dropped() int {
	return r.dropped
}

// Bytes returns the payload.
func (r *Reply) Bytes() []byte {
	return r.buf
}

// DefaultOutboundCapacity is the number of payloads waiting for the
// transmitter before Finish refuses more.
const DefaultOutboundCapacity = 8

// Composer builds replies and holds the outbound payloads plus the
// acknowledgment record. Outbound payloads leave in the order they were
// finished, ahead of the record.
type Composer struct {
	// MaxPayload bounds every reply.
	MaxPayload int
	// Capacity bounds the outbound payloads.
	Capacity int
	// Strict makes Finish reject replies that overflowed.
	Strict bool
	// Notify is called when something becomes ready to transmit.
	Notify func()
	// OnAck observes every stored acknowledgment.
	OnAck func(Ack)

	Acks AckRecord

	lock     sync.Mutex
	outbound [][]byte
}

// NewComposer creates a Composer.
func NewComposer() *Composer {
	return &Composer{MaxPayload: comm.DefaultMaxPayload, Capacity: DefaultOutboundCapacity}
}

// Start begins a reply with the opcode and arguments.
func (c *Composer) Start(op Opcode, arg1, arg2 uint32) *Reply {
	limit := c.MaxPayload
	if limit <= 0 {
		limit = comm.DefaultMaxPayload
	}
	r := &Reply{buf: make([]byte, 0, limit), max: limit, strict: c.Strict}
	r.buf = append(r.buf, comm.Uplink{Opcode: byte(op), Arg1: arg1, Arg2: arg2}.Bytes()...)
	return r
}

// Finish queues the reply for transmission. It fails with ErrOutboundFull
// when Capacity payloads are already waiting.
func (c *Composer) Finish(r *Reply) error {
	if r.dropped > 0 {
		if r.strict {
			return ErrReplyOverflow
		}
		glog.Warningf("reply 0x%02x truncated, %d bytes dropped", r.buf[0], r.dropped)
	}
	if err := c.push(r.buf); err != nil {
		glog.Warningf("reply 0x%02x: %v", r.buf[0], err)
		return err
	}
	c.notify()
	return nil
}

func (c *Composer) push(payload []byte) error {
	limit := c.Capacity
	if limit <= 0 {
		limit = DefaultOutboundCapacity
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if len(c.outbound) >= limit {
		return ErrOutboundFull
	}
	c.outbound = append(c.outbound, payload)
	return nil
}

// Reject queues the negative acknowledgment of a command which produced no
// reply. It goes out in order with the replies; the record is only used
// when the outbound payloads are full.
func (c *Composer) Reject(op Opcode, status comm.AckStatus) {
	ack := Ack{Opcode: op, Status: status}
	if err := c.push(ack.Payload()); err != nil {
		c.Ack(op, status)
		return
	}
	glog.V(2).Infof("reject %s: %s", op, status)
	if fn := c.OnAck; fn != nil {
		fn(ack)
	}
	c.notify()
}

// Ack stores an acknowledgment to send when no reply is pending.
func (c *Composer) Ack(op Opcode, status comm.AckStatus) {
	glog.V(2).Infof("ack %s: %s", op, status)
	ack := Ack{Opcode: op, Status: status}
	c.Acks.Put(ack)
	if fn := c.OnAck; fn != nil {
		fn(ack)
	}
	c.notify()
}

// Take hands over the oldest outbound payload, or the pending ack.
func (c *Composer) Take() ([]byte, bool) {
	c.lock.Lock()
	var payload []byte
	if len(c.outbound) > 0 {
		payload = c.outbound[0]
		c.outbound[0] = nil
		c.outbound = c.outbound[1:]
	}
	c.lock.Unlock()
	if payload != nil {
		return payload, true
	}
	if ack, ok := c.Acks.Take(); ok {
		return ack.Payload(), true
	}
	return nil, false
}

// Pending reports whether anything waits to be transmitted.
func (c *Composer) Pending() bool {
	c.lock.Lock()
	pending := len(c.outbound) > 0
	c.lock.Unlock()
	return pending || c.Acks.Pending()
}

func (c *Composer) notify() {
	if fn := c.Notify; fn != nil {
		fn()
	}
}
