package obc

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/obc.go/pkg/l0/comm"
	"github.com/robotalks/obc.go/pkg/l0/radio"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/command"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

// DefaultGroundBacklog is the number of events waiting for the network.
const DefaultGroundBacklog = 64

// Ground bridges the node to ground tools on the network. Uplink commands
// enter the receive path as if heard over the air; downlinks, command
// results and negative acknowledgments go back as events.
type Ground struct {
	Registrar l1.Registrar
	Frames    comm.FrameHandler

	events chan msgs.Message
}

// NewGround creates a Ground.
func NewGround(reg l1.Registrar, frames comm.FrameHandler) *Ground {
	return &Ground{
		Registrar: reg,
		Frames:    frames,
		events:    make(chan msgs.Message, DefaultGroundBacklog),
	}
}

// HandleCommand implements l1.CommandHandler.
func (g *Ground) HandleCommand(ctx context.Context, cmd l1.Command) {
	u, ok := cmd.Msg().(*msgs.Uplink)
	if !ok {
		cmd.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand))
		return
	}
	frame := u.Frame
	if len(frame) == 0 {
		if u.Opcode > 0xff {
			cmd.Done(msgs.NewCommandErr(ErrOpcode))
			return
		}
		frame = comm.EncodeUplink(comm.Uplink{Opcode: byte(u.Opcode), Arg1: u.Arg1, Arg2: u.Arg2})
	}
	glog.V(2).Infof("ground uplink % x", frame)
	g.Frames.HandleFrame(ctx, frame)
	cmd.Done(msgs.NewCommandOK())
}

// Post queues an event without blocking. Events are dropped when the
// backlog is full.
func (g *Ground) Post(msg msgs.Message) {
	select {
	case g.events <- msg:
	default:
		glog.Warningf("ground backlog full, %s dropped", msgs.Name(msg))
	}
}

// MirrorFrame implements command.FrameMirror.
func (g *Ground) MirrorFrame(ctx context.Context, frame []byte) error {
	ev := &msgs.Downlink{}
	ev.Frame = append([]byte(nil), frame...)
	if payload, err := comm.DecodeFrame(frame); err == nil {
		ev.Payload = payload
	}
	g.Post(ev)
	return nil
}

// CommandFinished reports a Completion.
func (g *Ground) CommandFinished(c command.Completion) {
	ev := &msgs.CommandResult{}
	ev.Opcode = uint32(c.Opcode)
	ev.Name = c.Name
	ev.Arg1, ev.Arg2 = c.Args.Arg1, c.Args.Arg2
	ev.Succeeded, ev.TimedOut, ev.Replied = c.Succeeded, c.TimedOut, c.Replied
	ev.Ticks = uint32(c.Ticks)
	g.Post(ev)
}

// Acked reports a negative acknowledgment.
func (g *Ground) Acked(a command.Ack) {
	if a.Status == comm.AckOK {
		return
	}
	ev := &msgs.Nack{}
	ev.Opcode, ev.Status = uint32(a.Opcode), uint32(a.Status)
	g.Post(ev)
}

// RadioStatus reports the telemetry of the transceiver.
func (g *Ground) RadioStatus(st radio.Status, baud int) {
	ev := &msgs.RadioStatus{}
	ev.Scw = uint32(st.SCW)
	ev.Rssi = uint32(st.RSSI)
	ev.ResetCount = uint32(st.ResetCount)
	ev.Frequency = st.Frequency
	ev.Uptime = st.Uptime
	ev.TxPackets, ev.RxPackets, ev.RxCrcErrors = st.TxPackets, st.RxPackets, st.RxCRCErrors
	ev.Baud = uint32(baud)
	g.Post(ev)
}

// Name implements fx.Named.
func (g *Ground) Name() string {
	return "ground"
}

// Run implements fx.Runnable.
func (g *Ground) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-g.events:
			if g.Registrar == nil {
				continue
			}
			if err := g.Registrar.SendEvent(ctx, ev); err != nil {
				glog.Warningf("send %s: %v", msgs.Name(ev), err)
			}
		}
	}
}
