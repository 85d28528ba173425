// Package v1 holds the messages defined in obc.proto.
package v1

import (
	proto "github.com/golang/protobuf/proto"
)

// Typed is the envelope of every message exchanged with the ground.
type Typed struct {
	TypeId   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }
func (*Typed) ProtoMessage()    {}

type CommandOK struct{}

func (m *CommandOK) Reset()         { *m = CommandOK{} }
func (m *CommandOK) String() string { return proto.CompactTextString(m) }
func (*CommandOK) ProtoMessage()    {}

type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *CommandErr) Reset()         { *m = CommandErr{} }
func (m *CommandErr) String() string { return proto.CompactTextString(m) }
func (*CommandErr) ProtoMessage()    {}

// Uplink injects a command. A non-empty Frame is used verbatim.
type Uplink struct {
	Opcode uint32 `protobuf:"varint,1,opt,name=opcode,proto3" json:"opcode,omitempty"`
	Arg1   uint32 `protobuf:"varint,2,opt,name=arg1,proto3" json:"arg1,omitempty"`
	Arg2   uint32 `protobuf:"varint,3,opt,name=arg2,proto3" json:"arg2,omitempty"`
	Frame  []byte `protobuf:"bytes,4,opt,name=frame,proto3" json:"frame,omitempty"`
}

func (m *Uplink) Reset()         { *m = Uplink{} }
func (m *Uplink) String() string { return proto.CompactTextString(m) }
func (*Uplink) ProtoMessage()    {}

type Downlink struct {
	Frame   []byte `protobuf:"bytes,1,opt,name=frame,proto3" json:"frame,omitempty"`
	Payload []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
}

func (m *Downlink) Reset()         { *m = Downlink{} }
func (m *Downlink) String() string { return proto.CompactTextString(m) }
func (*Downlink) ProtoMessage()    {}

type CommandResult struct {
	Opcode    uint32 `protobuf:"varint,1,opt,name=opcode,proto3" json:"opcode,omitempty"`
	Name      string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Arg1      uint32 `protobuf:"varint,3,opt,name=arg1,proto3" json:"arg1,omitempty"`
	Arg2      uint32 `protobuf:"varint,4,opt,name=arg2,proto3" json:"arg2,omitempty"`
	Succeeded bool   `protobuf:"varint,5,opt,name=succeeded,proto3" json:"succeeded,omitempty"`
	TimedOut  bool   `protobuf:"varint,6,opt,name=timed_out,json=timedOut,proto3" json:"timed_out,omitempty"`
	Replied   bool   `protobuf:"varint,7,opt,name=replied,proto3" json:"replied,omitempty"`
	Ticks     uint32 `protobuf:"varint,8,opt,name=ticks,proto3" json:"ticks,omitempty"`
}

func (m *CommandResult) Reset()         { *m = CommandResult{} }
func (m *CommandResult) String() string { return proto.CompactTextString(m) }
func (*CommandResult) ProtoMessage()    {}

type Nack struct {
	Opcode uint32 `protobuf:"varint,1,opt,name=opcode,proto3" json:"opcode,omitempty"`
	Status uint32 `protobuf:"varint,2,opt,name=status,proto3" json:"status,omitempty"`
}

func (m *Nack) Reset()         { *m = Nack{} }
func (m *Nack) String() string { return proto.CompactTextString(m) }
func (*Nack) ProtoMessage()    {}

type RadioStatus struct {
	Scw         uint32 `protobuf:"varint,1,opt,name=scw,proto3" json:"scw,omitempty"`
	Rssi        uint32 `protobuf:"varint,2,opt,name=rssi,proto3" json:"rssi,omitempty"`
	ResetCount  uint32 `protobuf:"varint,3,opt,name=reset_count,json=resetCount,proto3" json:"reset_count,omitempty"`
	Frequency   uint32 `protobuf:"varint,4,opt,name=frequency,proto3" json:"frequency,omitempty"`
	Uptime      uint32 `protobuf:"varint,5,opt,name=uptime,proto3" json:"uptime,omitempty"`
	TxPackets   uint32 `protobuf:"varint,6,opt,name=tx_packets,json=txPackets,proto3" json:"tx_packets,omitempty"`
	RxPackets   uint32 `protobuf:"varint,7,opt,name=rx_packets,json=rxPackets,proto3" json:"rx_packets,omitempty"`
	RxCrcErrors uint32 `protobuf:"varint,8,opt,name=rx_crc_errors,json=rxCrcErrors,proto3" json:"rx_crc_errors,omitempty"`
	Baud        uint32 `protobuf:"varint,9,opt,name=baud,proto3" json:"baud,omitempty"`
}

func (m *RadioStatus) Reset()         { *m = RadioStatus{} }
func (m *RadioStatus) String() string { return proto.CompactTextString(m) }
func (*RadioStatus) ProtoMessage()    {}
