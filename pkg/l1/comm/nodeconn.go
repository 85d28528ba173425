package comm

import (
	"context"
	"errors"
	"sync"
	"time"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

// DefaultCommandExpiration is how long NodeConn waits for a reply.
const DefaultCommandExpiration = 1 * time.Second

// ErrConnClosed fails the commands pending when the connection ends.
var ErrConnClosed = errors.New("connection closed")

// NodeConn implements l1.NodeConn over a Pipe. Replies are matched by
// sequence number. Commands without a reply within Expiration fail with
// context.DeadlineExceeded.
type NodeConn struct {
	Expiration time.Duration

	pipe    Pipe
	lock    sync.Mutex
	seq     uint32
	pending []*commandFuture // ordered by expireAt
	events  l1.EventHandler
}

// Init initializes NodeConn with defaults.
func (c *NodeConn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
}

// DoCommand implements NodeConn.
func (c *NodeConn) DoCommand(msg msgs.Message) l1.CommandFuture {
	c.lock.Lock()
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	f := &commandFuture{
		seq:      c.seq,
		expireAt: time.Now().Add(c.Expiration),
		result:   make(chan l1.Result, 1),
	}
	c.pending = append(c.pending, f)
	c.lock.Unlock()

	if err := c.pipe.SendCommandMsg(msg, f.seq); err != nil {
		c.resolve(f.seq, l1.Result{Err: err})
	}
	return f
}

// Pending returns the number of commands waiting for a reply.
func (c *NodeConn) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.pending)
}

// OnEvent implements NodeConn.
func (c *NodeConn) OnEvent(h l1.EventHandler) {
	c.lock.Lock()
	c.events = h
	c.lock.Unlock()
}

// AddToLoop implements LoopAdder.
func (c *NodeConn) AddToLoop(l *fx.Loop) {
	c.pipe.addReadWriter(l)
	l.AddRunnable(fx.NamedRun("node-conn", fx.RunnableFunc(c.run)))
	l.AddController(fx.PrLvIdle, fx.ControlFunc(c.purgeExpired))
}

func (c *NodeConn) run(ctx context.Context) error {
	err := c.pipe.Run(ctx)
	c.failAll(ErrConnClosed)
	return err
}

func (c *NodeConn) handleTypedMsg(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		c.lock.Lock()
		h := c.events
		c.lock.Unlock()
		if h != nil {
			h(msg)
		}
		return nil
	}
	if !typed.IsReply() {
		return nil
	}
	result := l1.Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	c.resolve(typed.Sequence, result)
	return nil
}

// resolve completes the pending command seq, if still pending.
func (c *NodeConn) resolve(seq uint32, result l1.Result) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for n, f := range c.pending {
		if f.seq == seq {
			c.pending = append(c.pending[:n], c.pending[n+1:]...)
			f.complete(result)
			return
		}
	}
}

func (c *NodeConn) purgeExpired(cc fx.ControlContext) error {
	now := time.Now()
	c.lock.Lock()
	defer c.lock.Unlock()
	n := 0
	for ; n < len(c.pending) && !c.pending[n].expireAt.After(now); n++ {
		c.pending[n].complete(l1.Result{Err: context.DeadlineExceeded})
	}
	c.pending = c.pending[n:]
	return nil
}

func (c *NodeConn) failAll(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, f := range c.pending {
		f.complete(l1.Result{Err: err})
	}
	c.pending = nil
}

type commandFuture struct {
	seq      uint32
	expireAt time.Time
	result   chan l1.Result
}

func (f *commandFuture) complete(result l1.Result) {
	f.result <- result
	close(f.result)
}

func (f *commandFuture) ResultChan() <-chan l1.Result {
	return f.result
}
