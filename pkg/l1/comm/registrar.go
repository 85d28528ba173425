package comm

import (
	"context"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

// Registrar implements l1.Registrar with Pipe. Commands go to Handler,
// or are replied as unsupported, like replies sent as commands.
type Registrar struct {
	Handler l1.CommandHandler

	pipe Pipe
}

// Init initializes the Registrar with defaults.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe.ReadWriter = rw
	r.pipe.Handler = msgs.HandleTypedMsgFunc(func(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
		if !typed.IsCommand() {
			glog.V(2).Infof("ignored %s", msgs.Name(msg))
			return nil
		}
		cmd := &command{seq: typed.Sequence, msg: msg, pipe: &r.pipe}
		h := r.Handler
		if h == nil || typed.IsReply() {
			h = Unsupported
		}
		h.HandleCommand(ctx, cmd)
		return nil
	})
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg msgs.Message) error {
	return r.pipe.SendEventMsg(msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.pipe)
}

type command struct {
	seq  uint32
	msg  msgs.Message
	pipe *Pipe
}

func (c *command) Msg() msgs.Message {
	return c.msg
}

func (c *command) Done(msg msgs.Message) error {
	return c.pipe.SendCommandMsg(msg, c.seq)
}

// RegistrarMux registers the node with multiple Registrars.
type RegistrarMux struct {
	Registrars []l1.Registrar
}

// SendEvent implements Registrar.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg msgs.Message) error {
	var errs fx.AggregatedError
	for _, reg := range r.Registrars {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (r *RegistrarMux) AddToLoop(l *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			l.Add(adder)
		}
	}
}

// Add adds more registrars.
func (r *RegistrarMux) Add(regs ...l1.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// SetHandler sets the command handler of every registrar accepting one.
func (r *RegistrarMux) SetHandler(h l1.CommandHandler) {
	for _, reg := range r.Registrars {
		if s, ok := reg.(interface{ SetHandler(l1.CommandHandler) }); ok {
			s.SetHandler(h)
		}
	}
}

// SetHandler sets Handler.
func (r *Registrar) SetHandler(h l1.CommandHandler) {
	r.Handler = h
}

// Unsupported replies every command as unsupported.
var Unsupported l1.CommandHandler = l1.HandleCommandFunc(func(ctx context.Context, cmd l1.Command) {
	cmd.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand))
})
