// Package sh is the ground console. Command sets register themselves with
// AddCmds from their init funcs.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/protobuf/proto"
	"github.com/spf13/pflag"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/env"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

// ErrNotConnected is reported by commands which need a node.
var ErrNotConnected = errors.New("not connected")

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	// Timeout bounds discovery and the wait for a command result.
	Timeout time.Duration
	// Watch prints events as they arrive.
	Watch bool
	// EventPrinter formats events from the node, FormatEvent if nil.
	EventPrinter func(msgs.Message) string
	// Events keeps the latest events of the session.
	Events *EventLog

	Shell   *ishell.Shell
	Config  *env.Config
	Session *Session
}

// Session is the loop running a connection to one node.
type Session struct {
	Ref    l1.NodeRef
	Conn   l1.NodeConn
	cancel context.CancelFunc
}

// Close stops the connection loop.
func (s *Session) Close() {
	s.cancel()
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	evalOnly     bool
	outputJSON   bool
	watch        = true
	timeout      = time.Second
	eventBacklog = DefaultEventBacklog
	eventPrinter func(msgs.Message) string

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&EventsCmd,
		&WatchCmd,
	}
)

// SetupFlags sets the flags of the shell.
func SetupFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&evalOnly, "eval", "e", evalOnly, "Evaluation only, no interactive shell.")
	fs.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	fs.BoolVar(&watch, "watch", watch, "Print events from the node as they arrive.")
	fs.DurationVar(&timeout, "timeout", timeout, "Command result timeout.")
	fs.IntVar(&eventBacklog, "events", eventBacklog, "Number of events kept for the events command.")
}

// SetEventPrinter sets the EventPrinter of new shells. It is used by
// commands providers during init func.
func SetEventPrinter(fn func(msgs.Message) string) {
	eventPrinter = fn
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive:  !evalOnly,
		OutputJSON:   outputJSON,
		Timeout:      timeout,
		Watch:        watch && !evalOnly,
		EventPrinter: eventPrinter,
		Events:       NewEventLog(eventBacklog),
		Shell:        ishell.New(),
		Config:       conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// FormatInfo prints NodeInfo into friendly string for display.
func FormatInfo(info l1.NodeInfo) string {
	if info.Meta.Description == "" {
		return info.Ref.Name()
	}
	return info.Ref.Name() + ": " + info.Meta.Description
}

// FormatEvent prints an event as its type and text form.
func FormatEvent(msg msgs.Message) string {
	if sm, ok := msg.(msgs.SerializableMessage); ok {
		return fmt.Sprintf("%s %s", msgs.Name(msg), proto.CompactTextString(sm.Serializable()))
	}
	return msgs.Name(msg)
}

// Format renders msg the way the shell is configured to.
func (s *Shell) Format(msg msgs.Message) (string, error) {
	if !s.OutputJSON {
		if fn := s.EventPrinter; fn != nil {
			return fn(msg), nil
		}
		return FormatEvent(msg), nil
	}
	sm, ok := msg.(msgs.SerializableMessage)
	if !ok {
		return "", fmt.Errorf("%s not serializable", msgs.Name(msg))
	}
	out, err := json.Marshal(map[string]interface{}{
		"type": msgs.Name(msg),
		"msg":  sm.Serializable(),
	})
	return string(out), err
}

// DoCommand runs a command and waits for result.
func DoCommand(c *ishell.Context, msg msgs.Message) error {
	s := ShellFrom(c)
	res, err := s.Do(msg)
	if err == nil {
		if _, ok := res.(*msgs.CommandOK); ok && !s.OutputJSON {
			c.Println("OK")
			return nil
		}
		var out string
		if out, err = s.Format(res); err == nil {
			c.Println(out)
			return nil
		}
	}
	c.Err(err)
	return err
}

// Do sends a command to the connected node and waits at most Timeout.
func (s *Shell) Do(msg msgs.Message) (msgs.Message, error) {
	if s.Session == nil {
		return nil, ErrNotConnected
	}
	f := s.Session.Conn.DoCommand(msg)
	select {
	case res := <-f.ResultChan():
		return res.Msg, res.Err
	case <-time.After(s.Timeout):
		return nil, fmt.Errorf("%s: %w", msgs.Name(msg), context.DeadlineExceeded)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverNodes discovers nodes matching filter, all if filter is nil.
func (s *Shell) DiscoverNodes(filter func(l1.NodeInfo) bool) ([]l1.NodeInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	found, err := connector.Discover(ctx)
	if err != nil || filter == nil {
		return found, err
	}
	var infoList []l1.NodeInfo
	for _, info := range found {
		if filter(info) {
			infoList = append(infoList, info)
		}
	}
	return infoList, nil
}

// SelectNode discovers nodes and asks for a choice when more than one
// is found. It returns nil when nothing is found.
func (s *Shell) SelectNode(filter func(l1.NodeInfo) bool) (*l1.NodeInfo, error) {
	infoList, err := s.DiscoverNodes(filter)
	switch {
	case err != nil || len(infoList) == 0:
		return nil, err
	case len(infoList) == 1:
		return &infoList[0], nil
	case !s.Interactive:
		return nil, fmt.Errorf("%d nodes discovered in non-interactive mode", len(infoList))
	}
	items := make([]string, len(infoList))
	for n, info := range infoList {
		items[n] = FormatInfo(info)
	}
	index := s.Shell.MultiChoice(items, "Which one to connect?")
	if index < 0 {
		return nil, nil
	}
	return &infoList[index], nil
}

// Connect connects node with ref and replaces the current session.
func (s *Shell) Connect(ref l1.NodeRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	conn, err := connector.Connect(ctx, ref)
	if err != nil {
		cancel()
		return err
	}
	conn.OnEvent(s.onEvent)
	loop := fx.NewLoop()
	if adder, ok := conn.(fx.LoopAdder); ok {
		loop.Add(adder)
	}
	s.Disconnect()
	s.Session = &Session{Ref: ref, Conn: conn, cancel: cancel}
	go loop.Run(ctx)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", ref.Name()))
	return nil
}

func (s *Shell) onEvent(msg msgs.Message) {
	s.Events.Add(msg)
	if !s.Watch {
		return
	}
	out, err := s.Format(msg)
	if err != nil {
		out = err.Error()
	}
	s.Shell.Println(out)
}

// Disconnect disconnects current node.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Close()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	ref := s.Config.Ref()
	if s.AutoConnect && ref.IsValid() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", ref.Name())
		}
		if err := s.Connect(ref); err != nil {
			log.Fatalf("connect %q failed: %v", ref.Name(), err)
		}
	}
	switch {
	case len(args) > 0:
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
	case s.Interactive:
		s.Shell.Run()
	default:
		log.Fatalln("command expected")
	}
}

// Main is a helper to provide a single call in main.
func Main() {
	conf := env.NewConfig()
	conf.SetupFlags(pflag.CommandLine)
	SetupFlags(pflag.CommandLine)
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	New(conf.MustLoad(pflag.CommandLine)).WithAutoConnect(true).Run(pflag.Args()...)
}
