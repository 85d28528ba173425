package obc

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l0/canbus"
	"github.com/robotalks/obc.go/pkg/l0/comm"
	"github.com/robotalks/obc.go/pkg/l0/radio"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/command"
)

// DefaultStatusInterval is the period of transceiver telemetry reports.
const DefaultStatusInterval = 30 * time.Second

// NodeConfig lists the collaborators and settings of a Node.
type NodeConfig struct {
	// UART is the line to the transceiver. Without it the node is only
	// reachable through Registrar.
	UART io.ReadWriter
	// UARTTimeout is set when Read on UART returns after a timeout.
	UARTTimeout bool
	// CAN reaches EPS and PAY. A Loopback with no boards is used when nil.
	CAN         canbus.Link
	Clock       Clock
	Memory      Memory
	Resetter    Resetter
	Restart     RestartInfo
	Registrar   l1.Registrar

	QueueCapacity  int
	TimeoutTicks   int
	MaxPayload     int
	Strict         bool
	GuardDelay     time.Duration
	ConfiguredBaud int
	TargetBaud     int
	StatusInterval time.Duration
}

// Node assembles the link core: receive path, executor, reply
// transmission, the command set and the ground bridge.
type Node struct {
	Config      NodeConfig
	Commands    *Commands
	Executor    *command.Executor
	Dispatcher  *command.Dispatcher
	Transmitter *command.Transmitter
	Ground      *Ground

	FIFO       *comm.FIFO
	Client     *comm.Client
	Radio      *radio.Radio
	Negotiator *radio.Negotiator
}

// NewNode creates a Node.
func NewNode(cfg NodeConfig) *Node {
	if cfg.CAN == nil {
		cfg.CAN = canbus.NewLoopback()
	}
	n := &Node{Config: cfg}
	n.Commands = New(cfg.Clock, cfg.Memory, nil)
	n.Commands.Resetter = cfg.Resetter
	n.Commands.Restart = cfg.Restart
	n.Commands.Bus = NewLinkBus(cfg.CAN, n.Commands.HandleMessage)

	composer := command.NewComposer()
	if cfg.MaxPayload > 0 {
		composer.MaxPayload = cfg.MaxPayload
	}
	composer.Strict = cfg.Strict
	n.Executor = command.NewExecutor(command.NewRegistry(n.Commands.Descriptors()...), composer)
	if cfg.QueueCapacity > 0 {
		n.Executor.Queue = command.NewQueue(cfg.QueueCapacity)
	}
	if cfg.TimeoutTicks > 0 {
		n.Executor.TimeoutTicks = cfg.TimeoutTicks
	}
	n.Commands.Install(n.Executor)
	n.Dispatcher = command.NewDispatcher(n.Executor)
	n.Transmitter = &command.Transmitter{Composer: composer, MaxPayload: composer.MaxPayload}

	n.Ground = NewGround(cfg.Registrar, n.Dispatcher)
	n.Transmitter.Mirrors = append(n.Transmitter.Mirrors, n.Ground)
	n.Executor.OnFinish = n.Ground.CommandFinished
	composer.OnAck = n.Ground.Acked
	if s, ok := cfg.Registrar.(interface{ SetHandler(l1.CommandHandler) }); ok {
		s.SetHandler(n.Ground)
	}

	if cfg.UART != nil {
		n.FIFO = comm.NewFIFO(cfg.UART)
		n.FIFO.ReadTimeout = cfg.UARTTimeout
		if cfg.GuardDelay > 0 {
			n.FIFO.GuardDelay = cfg.GuardDelay
		}
		n.FIFO.Frames = n.Dispatcher
		n.Client = comm.NewClient(n.FIFO)
		n.Radio = radio.New(n.Client)
		n.Transmitter.Sender = n.FIFO
		n.Transmitter.Pipe = n.Radio
		if sw, ok := cfg.UART.(radio.BaudSwitcher); ok {
			n.Negotiator = &radio.Negotiator{Radio: n.Radio, Link: sw, Configured: cfg.ConfiguredBaud}
		}
	}
	return n
}

// AddToLoop implements fx.LoopAdder.
func (n *Node) AddToLoop(l *fx.Loop) {
	n.Transmitter.Composer.Notify = l.TriggerNext
	l.Add(n.Dispatcher, n.Executor, n.Transmitter)
	l.AddRunnable(n.Commands.AutoCollector, n.Ground)
	if r, ok := n.Config.CAN.(fx.Runnable); ok {
		l.AddRunnable(r)
	}
	if n.FIFO != nil {
		l.AddRunnable(fx.NamedRun("fifo", fx.RunnableFunc(n.FIFO.Run)))
		l.AddRunnable(fx.NamedRun("radio", fx.RunnableFunc(n.superviseRadio)))
	}
	if adder, ok := n.Config.Registrar.(fx.LoopAdder); ok {
		l.Add(adder)
	}
}

// Negotiate brings the transceiver to the target baud rate.
func (n *Node) Negotiate(ctx context.Context) error {
	if n.Radio == nil {
		return ErrNoLink
	}
	if n.Negotiator == nil || n.Config.TargetBaud == 0 {
		_, err := n.Radio.ReadSCW(ctx)
		return err
	}
	return n.Negotiator.Negotiate(ctx, n.Config.TargetBaud)
}

// ReportRadioStatus reads the transceiver telemetry and posts it to the ground.
func (n *Node) ReportRadioStatus(ctx context.Context) error {
	if n.Radio == nil {
		return ErrNoLink
	}
	st, err := n.Radio.Status(ctx)
	if err != nil {
		return err
	}
	var baud int
	if n.Negotiator != nil {
		baud = n.Negotiator.Current()
	} else if len(radio.SupportedBaudRates) > int(st.SCW.BaudCode()) {
		baud = radio.SupportedBaudRates[st.SCW.BaudCode()]
	}
	n.Ground.RadioStatus(st, baud)
	return nil
}

func (n *Node) superviseRadio(ctx context.Context) error {
	if err := n.Negotiate(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		glog.Warningf("transceiver negotiation: %v", err)
	}
	if err := n.Radio.LoadPipeTimeout(ctx); err != nil && ctx.Err() == nil {
		glog.Warningf("transceiver pipe timeout: %v", err)
	}
	interval := n.Config.StatusInterval
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.ReportRadioStatus(ctx); err != nil && ctx.Err() == nil {
				glog.Warningf("transceiver status: %v", err)
			}
		}
	}
}
