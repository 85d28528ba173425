package obc

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/obc.go/pkg/l0/canbus"
)

// CAN identifiers.
const (
	EPSCommandID uint32 = 0x0101
	PAYCommandID uint32 = 0x0102
	EPSDataID    uint32 = 0x0111
	PAYDataID    uint32 = 0x0112
)

// CommandID is the identifier of messages sent to a subsystem.
func CommandID(to Subsystem) (uint32, bool) {
	switch to {
	case SubsysEPS:
		return EPSCommandID, true
	case SubsysPAY:
		return PAYCommandID, true
	}
	return 0, false
}

// DataID is the identifier of messages sent by a subsystem.
func DataID(from Subsystem) (uint32, bool) {
	switch from {
	case SubsysEPS:
		return EPSDataID, true
	case SubsysPAY:
		return PAYDataID, true
	}
	return 0, false
}

// LinkBus is a Bus over a CAN link. Subsystems answer on EPSDataID and
// PAYDataID.
type LinkBus struct {
	Link canbus.Link
}

// NewLinkBus creates a LinkBus delivering responses to handler.
func NewLinkBus(link canbus.Link, handler func(Subsystem, Message)) *LinkBus {
	b := &LinkBus{Link: link}
	if handler != nil {
		link.Subscribe(EPSDataID, func(f canbus.Frame) { handler(SubsysEPS, Message(f.Data)) })
		link.Subscribe(PAYDataID, func(f canbus.Frame) { handler(SubsysPAY, Message(f.Data)) })
	}
	return b
}

// Send implements Bus.
func (b *LinkBus) Send(ctx context.Context, to Subsystem, msg Message) error {
	id, ok := CommandID(to)
	if !ok {
		return ErrSubsystem
	}
	glog.V(2).Infof("CAN to %s: %s", to, msg)
	return b.Link.Publish(canbus.Frame{ID: id, Data: msg})
}
