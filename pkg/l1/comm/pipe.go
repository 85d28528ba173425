package comm

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

var (
	// ErrNotCommand is returned when an event is sent as a command.
	ErrNotCommand = errors.New("message is not a command")
	// ErrNotEvent is returned when a command is sent as an event.
	ErrNotEvent = errors.New("message is not an event")
)

// Pipe moves Typed envelopes over a PacketReadWriter. Received messages
// go to Handler; commands of unknown type are answered with CommandErr.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler

	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SendCommandMsg sends a command with sequence seq.
func (p *Pipe) SendCommandMsg(msg msgs.Message, seq uint32) error {
	return p.send(msg, msgs.TypeIDKindCommand, seq)
}

// SendEventMsg sends an event.
func (p *Pipe) SendEventMsg(msg msgs.Message) error {
	return p.send(msg, msgs.TypeIDKindEvent, 0)
}

func (p *Pipe) send(msg msgs.Message, kind, seq uint32) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	switch {
	case kind == msgs.TypeIDKindCommand && !typed.IsCommand():
		return ErrNotCommand
	case kind == msgs.TypeIDKindEvent && !typed.IsEvent():
		return ErrNotEvent
	}
	typed.Sequence = seq
	return p.SendTyped(typed)
}

// SendTyped writes one envelope. Concurrent senders are serialized.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

// Run implements Runnable.
func (p *Pipe) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, p, func() error {
		return p.receive(ctx)
	})
}

func (p *Pipe) receive(ctx context.Context) error {
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		typed, err := msgs.DecodeTyped(pkt)
		if err != nil {
			glog.Warningf("pipe: bad packet (%d bytes): %v", len(pkt), err)
			continue
		}
		msg, err := typed.Decode()
		switch {
		case err != nil && typed.IsCommand():
			err = p.SendCommandMsg(msgs.NewCommandErr(err), typed.Sequence)
		case err != nil:
			glog.V(2).Infof("pipe: event dropped: %v", err)
			err = nil
		case p.Handler != nil:
			err = p.Handler.HandleTypedMsg(ctx, msg, typed)
		}
		if err != nil {
			return err
		}
	}
}

// Name implements Named.
func (p *Pipe) Name() string {
	return "pipe"
}

// Close implements Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	p.addReadWriter(loop)
	loop.AddRunnable(p)
}

// addReadWriter adds the ReadWriter to loop when it runs by itself, like
// the MQTT one.
func (p *Pipe) addReadWriter(loop *fx.Loop) {
	switch rw := p.ReadWriter.(type) {
	case fx.LoopAdder:
		loop.Add(rw)
	case fx.Runnable:
		loop.AddRunnable(rw)
	}
}
