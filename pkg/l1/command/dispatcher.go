package command

import (
	"context"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l0/comm"
)

// DefaultUplinkBacklog is the number of validated uplinks waiting for the
// loop before new ones are refused.
const DefaultUplinkBacklog = 16

// Dispatcher validates uplink frames on the receive path and enqueues the
// commands they carry from the loop.
type Dispatcher struct {
	Executor *Executor
	// OnUplink observes every accepted uplink.
	OnUplink func(comm.Uplink)

	uplinks chan []byte
}

// NewDispatcher creates a Dispatcher with DefaultUplinkBacklog.
func NewDispatcher(x *Executor) *Dispatcher {
	return NewDispatcherWithBacklog(x, DefaultUplinkBacklog)
}

// NewDispatcherWithBacklog creates a Dispatcher holding at most backlog
// validated uplinks between loop iterations.
func NewDispatcherWithBacklog(x *Executor, backlog int) *Dispatcher {
	if backlog <= 0 {
		backlog = DefaultUplinkBacklog
	}
	return &Dispatcher{Executor: x, uplinks: make(chan []byte, backlog)}
}

// AddToLoop implements fx.LoopAdder.
func (d *Dispatcher) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvReceive, fx.ControlFunc(d.Control))
}

// HandleFrame implements comm.FrameHandler. Frames failing validation leave
// a negative acknowledgment; the payload of a valid one waits in the backlog
// for the next loop iteration. A full backlog is acknowledged as a full
// queue.
func (d *Dispatcher) HandleFrame(ctx context.Context, frame []byte) {
	u, status := comm.DecodeUplink(frame)
	switch status {
	case comm.AckOK:
		select {
		case d.uplinks <- u.Bytes():
		default:
			glog.Warningf("uplink backlog full, refused 0x%02x", u.Opcode)
			d.Executor.Composer.Ack(Opcode(u.Opcode), comm.AckQueueFull)
		}
		d.Executor.notify()
	case comm.AckNotFrame:
		glog.V(4).Infof("ignored % x", frame)
	default:
		glog.Warningf("uplink rejected: %s", status)
		d.Executor.Composer.Ack(UnknownOpcode, status)
	}
}

// Control drains the backlog.
func (d *Dispatcher) Control(cc fx.ControlContext) error {
	return d.Drain(cc.Context())
}

// Drain handles every uplink waiting in the backlog.
func (d *Dispatcher) Drain(ctx context.Context) error {
	var errs fx.AggregatedError
	for {
		select {
		case payload := <-d.uplinks:
			errs.Add(d.HandleUplink(ctx, payload))
		default:
			return errs.Aggregate()
		}
	}
}

// HandleUplink enqueues the command in a decoded payload. Payloads of the
// wrong length and unknown opcodes are dropped.
func (d *Dispatcher) HandleUplink(ctx context.Context, payload []byte) error {
	u, ok := comm.ParseUplink(payload)
	if !ok {
		glog.V(2).Infof("discarded %d byte uplink", len(payload))
		return nil
	}
	op := Opcode(u.Opcode)
	ref, _ := d.Executor.Registry.Lookup(op)
	if ref == NopRef {
		glog.V(2).Infof("discarded unknown opcode %s", op)
		return nil
	}
	if fn := d.OnUplink; fn != nil {
		fn(u)
	}
	if err := d.Executor.Enqueue(ref, u.Arg1, u.Arg2); err != nil {
		if err == ErrQueueFull {
			d.Executor.Composer.Ack(op, comm.AckQueueFull)
		}
		return err
	}
	return nil
}
