package msgs

import (
	"github.com/golang/protobuf/proto"

	pb "github.com/robotalks/obc.go/pkg/proto/obc/v1"
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
	pb.CommandOK
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return &m.CommandOK }

// CommandErr is the generic message representing command error.
type CommandErr struct {
	pb.CommandErr
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return NewCommandErrFromMsg(err.Error())
}

// NewCommandErrFromMsg creates a CommandErr.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{
		CommandErr: pb.CommandErr{
			Message: message,
		},
	}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return &m.CommandErr }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// Uplink command injects a command frame into the node.
type Uplink struct {
	pb.Uplink
}

// NewMessage implements Message.
func (m *Uplink) NewMessage() Message { return &Uplink{} }

// TypeID implements SerializableMessage.
func (m *Uplink) TypeID() uint32 { return UplinkTypeID }

// Serializable implements SerializableMessage.
func (m *Uplink) Serializable() proto.Message { return &m.Uplink }

// Downlink event carries a frame sent to the transceiver.
type Downlink struct {
	pb.Downlink
}

// NewMessage implements Message.
func (m *Downlink) NewMessage() Message { return &Downlink{} }

// TypeID implements SerializableMessage.
func (m *Downlink) TypeID() uint32 { return DownlinkTypeID }

// Serializable implements SerializableMessage.
func (m *Downlink) Serializable() proto.Message { return &m.Downlink }

// CommandResult event reports a finished command.
type CommandResult struct {
	pb.CommandResult
}

// NewMessage implements Message.
func (m *CommandResult) NewMessage() Message { return &CommandResult{} }

// TypeID implements SerializableMessage.
func (m *CommandResult) TypeID() uint32 { return CommandResultTypeID }

// Serializable implements SerializableMessage.
func (m *CommandResult) Serializable() proto.Message { return &m.CommandResult }

// Nack event reports a negative acknowledgment.
type Nack struct {
	pb.Nack
}

// NewMessage implements Message.
func (m *Nack) NewMessage() Message { return &Nack{} }

// TypeID implements SerializableMessage.
func (m *Nack) TypeID() uint32 { return NackTypeID }

// Serializable implements SerializableMessage.
func (m *Nack) Serializable() proto.Message { return &m.Nack }

// RadioStatus event reports the transceiver registers.
type RadioStatus struct {
	pb.RadioStatus
}

// NewMessage implements Message.
func (m *RadioStatus) NewMessage() Message { return &RadioStatus{} }

// TypeID implements SerializableMessage.
func (m *RadioStatus) TypeID() uint32 { return RadioStatusTypeID }

// Serializable implements SerializableMessage.
func (m *RadioStatus) Serializable() proto.Message { return &m.RadioStatus }

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupOBC     uint32 = 0x00010000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandOKTypeID     uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID    uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	UplinkTypeID        uint32 = GroupOBC | 0x0000
	DownlinkTypeID      uint32 = TypeIDKindEvent | GroupOBC | 0x0001
	CommandResultTypeID uint32 = TypeIDKindEvent | GroupOBC | 0x0002
	NackTypeID          uint32 = TypeIDKindEvent | GroupOBC | 0x0003
	RadioStatusTypeID   uint32 = TypeIDKindEvent | GroupOBC | 0x0004
)
