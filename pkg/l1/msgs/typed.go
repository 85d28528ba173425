package msgs

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/golang/protobuf/proto"

	pb "github.com/robotalks/obc.go/pkg/proto/obc/v1"
)

// A type ID is laid out as kind (1 bit) | group (15 bits) | id (16 bits),
// with the top bit of the id marking a reply.
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
	TypeIDMaskReply uint32 = 0x00008000
)

// Message Kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

var (
	// ErrNotSerializable indicates the message is not serializable.
	ErrNotSerializable = errors.New("not serializable message")
	// ErrUnsupportedCommand indicates the command is unsupported.
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// UnknownTypeError is returned when decoding an unregistered type ID.
type UnknownTypeError struct {
	TypeID uint32
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type: %08x", e.TypeID)
}

// Message is a message exchanged with the ground.
type Message interface {
	NewMessage() Message
}

// SerializableMessage can be carried in a Typed envelope.
type SerializableMessage interface {
	Message
	TypeID() uint32
	Serializable() proto.Message
}

// TypedMsgHandler handles a decoded message.
type TypedMsgHandler interface {
	HandleTypedMsg(context.Context, Message, *Typed) error
}

// HandleTypedMsgFunc is func form of TypedMsgHandler.
type HandleTypedMsgFunc func(context.Context, Message, *Typed) error

// HandleTypedMsg implements TypedMsgHandler.
func (f HandleTypedMsgFunc) HandleTypedMsg(ctx context.Context, msg Message, typed *Typed) error {
	return f(ctx, msg, typed)
}

var registry = struct {
	sync.RWMutex
	types map[uint32]SerializableMessage
}{types: make(map[uint32]SerializableMessage)}

// Register makes message types decodable. Registering a type ID twice
// panics.
func Register(prototypes ...SerializableMessage) {
	registry.Lock()
	defer registry.Unlock()
	for _, m := range prototypes {
		id := m.TypeID()
		if prev, ok := registry.types[id]; ok {
			panic(fmt.Sprintf("type %08x registered by %s and %s", id, Name(prev), Name(m)))
		}
		registry.types[id] = m
	}
}

// Lookup returns the prototype registered for typeID.
func Lookup(typeID uint32) (SerializableMessage, bool) {
	registry.RLock()
	defer registry.RUnlock()
	m, ok := registry.types[typeID]
	return m, ok
}

func init() {
	Register(
		(*CommandOK)(nil),
		(*CommandErr)(nil),
		(*Uplink)(nil),
		(*Downlink)(nil),
		(*CommandResult)(nil),
		(*Nack)(nil),
		(*RadioStatus)(nil),
	)
}

// Name is the type name of a message for display.
func Name(msg Message) string {
	t := reflect.TypeOf(msg)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Typed is the envelope of every message on the wire.
type Typed struct {
	pb.Typed
}

// TypedFrom wraps a serializable message.
func TypedFrom(msg Message) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s.Serializable())
	if err != nil {
		return nil, err
	}
	return &Typed{Typed: pb.Typed{TypeId: s.TypeID(), Message: data}}, nil
}

// DecodeTyped decodes an envelope from bytes.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed.Typed); err != nil {
		return nil, err
	}
	return &typed, nil
}

// Decode decodes the carried message.
func (p *Typed) Decode() (Message, error) {
	prototype, ok := Lookup(p.TypeId)
	if !ok {
		return nil, &UnknownTypeError{TypeID: p.TypeId}
	}
	msg := prototype.NewMessage()
	if err := proto.Unmarshal(p.Message, msg.(SerializableMessage).Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the envelope to bytes.
func (p *Typed) Encode() ([]byte, error) {
	return proto.Marshal(&p.Typed)
}

// Kind gets message kind from type ID.
func (p *Typed) Kind() uint32 {
	return p.TypeId & TypeIDMaskKind
}

// IsCommand determines if the message is a command.
func (p *Typed) IsCommand() bool {
	return p.Kind() == TypeIDKindCommand
}

// IsEvent determines if the message is an event.
func (p *Typed) IsEvent() bool {
	return p.Kind() == TypeIDKindEvent
}

// IsReply determines if the message answers a command.
func (p *Typed) IsReply() bool {
	return p.TypeId&TypeIDMaskReply != 0
}
