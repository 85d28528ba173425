package l1

import (
	"context"

	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

// Registrar registers an OBC node to a registry and publishes its events
// to the ground.
type Registrar interface {
	// SendEvent sends an event to the ground.
	SendEvent(context.Context, msgs.Message) error
}

// Command represents a received command to be processed.
type Command interface {
	Msg() msgs.Message
	Done(msgs.Message) error
}

// CommandHandler processes commands received by a Registrar.
type CommandHandler interface {
	HandleCommand(context.Context, Command)
}

// HandleCommandFunc is the func form of CommandHandler.
type HandleCommandFunc func(context.Context, Command)

// HandleCommand implements CommandHandler.
func (f HandleCommandFunc) HandleCommand(ctx context.Context, cmd Command) {
	f(ctx, cmd)
}

// NodeRef is a reference to an OBC node.
type NodeRef struct {
	// Type is the node type (flight, bench, sim).
	Type string
	// ID is unique ID of the device.
	ID string
}

// Name retrieves the name from ref.
func (r NodeRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates NodeRef is valid.
func (r NodeRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// NodeMeta provides metadata for a node.
type NodeMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// NodeInfo provides information of a node.
type NodeInfo struct {
	Ref  NodeRef
	Meta NodeMeta
}

// Connector is used by ground tools to connect to a node.
type Connector interface {
	// Discover enumerates registered nodes.
	Discover(context.Context) ([]NodeInfo, error)
	// Connect connects to the specified node.
	Connect(context.Context, NodeRef) (NodeConn, error)
}

// EventHandler receives events from a node.
type EventHandler func(msgs.Message)

// NodeConn is the connection to a node.
type NodeConn interface {
	// DoCommand executes a command.
	DoCommand(msgs.Message) CommandFuture
	// OnEvent sets the receiver of events.
	OnEvent(EventHandler)
}

// Result represents result of a command.
type Result struct {
	Msg msgs.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}
