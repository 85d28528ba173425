package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l0/comm"
)

// DefaultTimeoutTicks is the watchdog limit, 30 seconds at the default loop
// interval.
const DefaultTimeoutTicks = 150

// State is the state of the execution slot.
type State int

// Execution slot states.
const (
	StateIdle State = iota
	StateDequeued
	StateRunning
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDequeued:
		return "dequeued"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Slot is the command occupying the executor.
type Slot struct {
	Ref Ref
	Args
}

// Completion describes a finished command.
type Completion struct {
	Ref       Ref
	Opcode    Opcode
	Name      string
	Args      Args
	Succeeded bool
	TimedOut  bool
	Replied   bool
	Ticks     int
}

// Snapshot is a consistent view of the executor.
type Snapshot struct {
	State         State
	Slot          Slot
	Opcode        Opcode
	Name          string
	PrevSucceeded bool
	Ticks         int
	Queued        int
}

// Executor runs queued commands one at a time.
type Executor struct {
	Registry     *Registry
	Queue        *Queue
	Composer     *Composer
	TimeoutTicks int
	// OnFinish receives every completion, outside of any lock.
	OnFinish func(Completion)
	// Notify is called when the executor may have more work to do.
	Notify func()

	lock          sync.Mutex
	state         State
	slot          Slot
	prevSucceeded bool
	gen           uint64
	ticks         int
	exec          *Exec
}

// NewExecutor creates an Executor with an empty queue of default capacity.
func NewExecutor(reg *Registry, composer *Composer) *Executor {
	if composer == nil {
		composer = NewComposer()
	}
	return &Executor{
		Registry:     reg,
		Queue:        NewQueue(DefaultQueueCapacity),
		Composer:     composer,
		TimeoutTicks: DefaultTimeoutTicks,
	}
}

// AddToLoop implements fx.LoopAdder.
func (x *Executor) AddToLoop(l *fx.Loop) {
	if x.Notify == nil {
		x.Notify = l.TriggerNext
	}
	l.AddController(fx.PrLvExecute, fx.ControlFunc(x.Control))
	l.AddController(fx.PrLvSupervise, fx.ControlFunc(x.Supervise))
}

// Control runs the next command when idle.
func (x *Executor) Control(cc fx.ControlContext) error {
	x.ExecuteNext(cc.Context())
	return nil
}

// Supervise advances the watchdog on interval ticks only.
func (x *Executor) Supervise(cc fx.ControlContext) error {
	if cc.Ticked() {
		x.Tick()
	}
	return nil
}

// Enqueue appends a command to the queue.
func (x *Executor) Enqueue(ref Ref, arg1, arg2 uint32) error {
	if err := x.Queue.Push(ref, arg1, arg2); err != nil {
		return err
	}
	glog.V(2).Infof("enqueued %s(%d, %d)", x.Registry.Descriptor(ref).Name, arg1, arg2)
	x.notify()
	return nil
}

// EnqueueOpcode resolves an opcode and enqueues it.
func (x *Executor) EnqueueOpcode(op Opcode, arg1, arg2 uint32) error {
	ref, _ := x.Registry.Lookup(op)
	if ref == NopRef {
		return &UnknownOpcodeError{Opcode: op}
	}
	return x.Enqueue(ref, arg1, arg2)
}

// ExecuteNext starts the command at the head of the queue if the executor
// is idle. It returns true if a command was started.
func (x *Executor) ExecuteNext(ctx context.Context) bool {
	x.lock.Lock()
	if x.state != StateIdle {
		x.lock.Unlock()
		return false
	}
	ref, args, ok := x.Queue.Pop()
	if !ok {
		x.lock.Unlock()
		return false
	}
	x.state = StateDequeued
	x.slot = Slot{Ref: ref, Args: args}
	x.gen++
	x.ticks = 0
	desc := x.Registry.Descriptor(ref)
	execCtx, cancel := context.WithCancel(ctx)
	e := &Exec{
		Context:       execCtx,
		Ref:           ref,
		Opcode:        desc.Opcode,
		Name:          desc.Name,
		Args:          args,
		PrevSucceeded: x.prevSucceeded,
		executor:      x,
		gen:           x.gen,
		cancel:        cancel,
	}
	x.exec = e
	x.state = StateRunning
	x.lock.Unlock()

	glog.V(2).Infof("execute %s(%d, %d)", desc.Name, args.Arg1, args.Arg2)
	desc.Handler.Run(e)
	return true
}

// Finish ends the running command.
func (x *Executor) Finish(succeeded bool) bool {
	x.lock.Lock()
	gen := x.gen
	x.lock.Unlock()
	return x.finish(gen, succeeded, false)
}

// Tick advances the watchdog. A command running for TimeoutTicks ticks is
// finished as failed. It returns true when that happens.
func (x *Executor) Tick() bool {
	x.lock.Lock()
	if x.state != StateRunning {
		x.lock.Unlock()
		return false
	}
	x.ticks++
	limit := x.TimeoutTicks
	if limit <= 0 {
		limit = DefaultTimeoutTicks
	}
	if x.ticks < limit {
		x.lock.Unlock()
		return false
	}
	gen, name := x.gen, x.exec.Name
	x.lock.Unlock()
	glog.Warningf("%s timed out after %d ticks", name, limit)
	return x.finish(gen, false, true)
}

// Snapshot returns the current state.
func (x *Executor) Snapshot() Snapshot {
	x.lock.Lock()
	defer x.lock.Unlock()
	s := Snapshot{
		State:         x.state,
		Slot:          x.slot,
		PrevSucceeded: x.prevSucceeded,
		Ticks:         x.ticks,
		Queued:        x.Queue.Len(),
	}
	if x.state != StateIdle {
		desc := x.Registry.Descriptor(x.slot.Ref)
		s.Opcode, s.Name = desc.Opcode, desc.Name
	}
	return s
}

func (x *Executor) current(gen uint64) bool {
	x.lock.Lock()
	defer x.lock.Unlock()
	return x.state == StateRunning && x.gen == gen
}

func (x *Executor) finish(gen uint64, succeeded, timedOut bool) bool {
	x.lock.Lock()
	if x.state != StateRunning || x.gen != gen {
		x.lock.Unlock()
		return false
	}
	e := x.exec
	comp := Completion{
		Ref:       e.Ref,
		Opcode:    e.Opcode,
		Name:      e.Name,
		Args:      e.Args,
		Succeeded: succeeded,
		TimedOut:  timedOut,
		Ticks:     x.ticks,
	}
	x.state, x.slot, x.exec, x.ticks = StateIdle, Slot{}, nil, 0
	x.prevSucceeded = succeeded
	x.lock.Unlock()

	e.cancel()
	comp.Replied = e.hasReplied()
	if !succeeded && !comp.Replied {
		status := comm.AckFailed
		if timedOut {
			status = comm.AckTimeout
		}
		x.Composer.Reject(e.Opcode, status)
	}
	glog.V(2).Infof("finished %s succeeded=%v", e.Name, succeeded)
	if fn := x.OnFinish; fn != nil {
		fn(comp)
	}
	x.notify()
	return true
}

func (x *Executor) notify() {
	if fn := x.Notify; fn != nil {
		fn()
	}
}

// Exec is the context of one command execution handed to its Handler.
type Exec struct {
	// Context is canceled when the execution finishes.
	Context       context.Context
	Ref           Ref
	Opcode        Opcode
	Name          string
	Args          Args
	PrevSucceeded bool

	executor *Executor
	gen      uint64
	cancel   context.CancelFunc
	lock     sync.Mutex
	replied  bool
}

// Reply starts a reply echoing the opcode and arguments.
func (e *Exec) Reply() *Reply {
	return e.executor.Composer.Start(e.Opcode, e.Args.Arg1, e.Args.Arg2)
}

// Send publishes a reply while the execution is still current.
func (e *Exec) Send(r *Reply) error {
	if !e.executor.current(e.gen) {
		return ErrExecutionOver
	}
	if err := e.executor.Composer.Finish(r); err != nil {
		return err
	}
	e.lock.Lock()
	e.replied = true
	e.lock.Unlock()
	return nil
}

// Respond sends a reply carrying data and finishes the execution, as
// succeeded if the reply went out.
func (e *Exec) Respond(data ...byte) error {
	err := e.Send(e.Reply().Append(data...))
	e.Finish(err == nil)
	return err
}

// Finish ends this execution. It returns false if the execution was already
// finished.
func (e *Exec) Finish(succeeded bool) bool {
	return e.executor.finish(e.gen, succeeded, false)
}

// Current reports whether this execution is still running.
func (e *Exec) Current() bool {
	return e.executor.current(e.gen)
}

func (e *Exec) hasReplied() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.replied
}
