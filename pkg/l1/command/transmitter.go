package command

import (
	"context"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l0/comm"
)

// BurstSender sends one downlink frame.
type BurstSender interface {
	SendBurst(ctx context.Context, b []byte) error
}

// PipeSwitch turns transparent transmission on.
type PipeSwitch interface {
	SetPipe(ctx context.Context, on bool) error
}

// FrameMirror receives a copy of every downlink frame.
type FrameMirror interface {
	MirrorFrame(ctx context.Context, frame []byte) error
}

// Transmitter sends the pending reply of the Composer as a frame.
type Transmitter struct {
	Composer   *Composer
	Sender     BurstSender
	Pipe       PipeSwitch
	MaxPayload int
	Mirrors    []FrameMirror
}

// AddToLoop implements fx.LoopAdder.
func (t *Transmitter) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvTransmit, t)
}

// Control implements fx.Controller.
func (t *Transmitter) Control(cc fx.ControlContext) error {
	_, err := t.Transmit(cc.Context())
	if err == ErrNoReply {
		return nil
	}
	if t.Composer.Pending() {
		cc.TriggerNext()
	}
	return err
}

// Transmit sends one pending payload. It returns the frame sent.
func (t *Transmitter) Transmit(ctx context.Context) ([]byte, error) {
	payload, ok := t.Composer.Take()
	if !ok {
		return nil, ErrNoReply
	}
	limit := t.MaxPayload
	if limit <= 0 {
		limit = comm.DefaultMaxPayload
	}
	frame, err := comm.EncodeFrame(payload, limit)
	if err != nil {
		return nil, err
	}
	if t.Pipe != nil {
		if err := t.Pipe.SetPipe(ctx, true); err != nil {
			glog.Warningf("pipe mode: %v", err)
		}
	}
	glog.V(2).Infof("downlink %d bytes", len(payload))
	if t.Sender != nil {
		if err := t.Sender.SendBurst(ctx, frame); err != nil {
			return frame, err
		}
	}
	for _, m := range t.Mirrors {
		if err := m.MirrorFrame(ctx, frame); err != nil {
			glog.Warningf("mirror downlink: %v", err)
		}
	}
	return frame, nil
}
