package command

import (
	"sync"

	"github.com/robotalks/obc.go/pkg/l0/comm"
)

// Ack is an acknowledgment sent when no full command context exists, e.g.
// for a malformed uplink or a command failing without a reply.
type Ack struct {
	Opcode Opcode
	Status comm.AckStatus
}

// Payload builds the downlink payload [op][0 x 8][status].
func (a Ack) Payload() []byte {
	b := make([]byte, ReplyHeaderLen+1)
	b[0] = byte(a.Opcode)
	b[ReplyHeaderLen] = byte(a.Status)
	return b
}

// AckRecord is a single slot holding the latest Ack.
type AckRecord struct {
	lock sync.Mutex
	ack  Ack
	set  bool
}

// Put stores an Ack, replacing the pending one.
func (r *AckRecord) Put(a Ack) {
	r.lock.Lock()
	r.ack, r.set = a, true
	r.lock.Unlock()
}

// Take removes the pending Ack.
func (r *AckRecord) Take() (a Ack, ok bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	a, ok = r.ack, r.set
	r.ack, r.set = Ack{}, false
	return
}

// Pending reports whether an Ack is waiting.
func (r *AckRecord) Pending() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.set
}
