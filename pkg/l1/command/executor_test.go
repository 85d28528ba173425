package command

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/obc.go/pkg/l0/comm"
)

type testCommands struct {
	lock        sync.Mutex
	execs       []*Exec
	completions []Completion
}

func (c *testCommands) record(e *Exec) {
	c.lock.Lock()
	c.execs = append(c.execs, e)
	c.lock.Unlock()
}

func (c *testCommands) last() *Exec {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.execs[len(c.execs)-1]
}

func newTestExecutor() (*Executor, *testCommands) {
	cmds := &testCommands{}
	reg := NewRegistry(
		Descriptor{Opcode: 0x00, Name: "ECHO", Handler: HandlerFunc(func(e *Exec) {
			cmds.record(e)
			e.Respond(byte(e.Args.Arg1))
		})},
		Descriptor{Opcode: 0x01, Name: "ASYNC", Handler: HandlerFunc(func(e *Exec) {
			cmds.record(e)
		})},
		Descriptor{Opcode: 0x02, Name: "FAIL", Handler: HandlerFunc(func(e *Exec) {
			cmds.record(e)
			e.Finish(false)
		})},
	)
	x := NewExecutor(reg, nil)
	x.TimeoutTicks = 5
	x.OnFinish = func(c Completion) {
		cmds.lock.Lock()
		cmds.completions = append(cmds.completions, c)
		cmds.lock.Unlock()
	}
	return x, cmds
}

func TestExecutorRunsInOrder(t *testing.T) {
	x, cmds := newTestExecutor()
	ctx := context.Background()
	require.NoError(t, x.EnqueueOpcode(0x00, 1, 0))
	require.NoError(t, x.EnqueueOpcode(0x00, 2, 0))
	require.IsType(t, &UnknownOpcodeError{}, x.EnqueueOpcode(0x33, 0, 0))

	require.True(t, x.ExecuteNext(ctx))
	payload, ok := x.Composer.Take()
	require.True(t, ok)
	require.Equal(t, []byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 1}, payload)

	require.True(t, x.ExecuteNext(ctx))
	require.False(t, x.ExecuteNext(ctx))
	require.Len(t, cmds.completions, 2)
	require.Equal(t, uint32(1), cmds.completions[0].Args.Arg1)
	require.Equal(t, uint32(2), cmds.completions[1].Args.Arg1)
	require.True(t, cmds.completions[1].Succeeded)
	require.True(t, cmds.completions[1].Replied)

	snap := x.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.True(t, snap.PrevSucceeded)
}

func TestExecutorOneAtATime(t *testing.T) {
	x, cmds := newTestExecutor()
	ctx := context.Background()
	require.NoError(t, x.EnqueueOpcode(0x01, 7, 8))
	require.NoError(t, x.EnqueueOpcode(0x00, 3, 0))

	require.True(t, x.ExecuteNext(ctx))
	require.False(t, x.ExecuteNext(ctx))
	snap := x.Snapshot()
	require.Equal(t, StateRunning, snap.State)
	require.Equal(t, "ASYNC", snap.Name)
	require.Equal(t, Args{7, 8}, snap.Slot.Args)
	require.Equal(t, 1, snap.Queued)

	e := cmds.last()
	go e.Finish(true)
	<-e.Context.Done()
	require.False(t, e.Current())
	require.True(t, x.ExecuteNext(ctx))
	require.Equal(t, "ECHO", cmds.last().Name)
	require.True(t, cmds.last().PrevSucceeded)
}

func TestExecutorWatchdog(t *testing.T) {
	x, cmds := newTestExecutor()
	require.False(t, x.Tick())
	require.NoError(t, x.EnqueueOpcode(0x01, 0, 0))
	require.True(t, x.ExecuteNext(context.Background()))

	for n := 1; n < x.TimeoutTicks; n++ {
		require.False(t, x.Tick(), "tick %d", n)
		require.Equal(t, StateRunning, x.Snapshot().State)
		require.Equal(t, n, x.Snapshot().Ticks)
	}
	require.True(t, x.Tick())
	snap := x.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.False(t, snap.PrevSucceeded)

	require.Len(t, cmds.completions, 1)
	require.True(t, cmds.completions[0].TimedOut)
	require.False(t, cmds.completions[0].Succeeded)
	require.Equal(t, x.TimeoutTicks, cmds.completions[0].Ticks)

	payload, ok := x.Composer.Take()
	require.True(t, ok)
	require.Equal(t, Ack{Opcode: 0x01, Status: comm.AckTimeout}.Payload(), payload)

	e := cmds.last()
	require.Error(t, e.Context.Err())
	require.False(t, e.Finish(true))
	require.Equal(t, ErrExecutionOver, e.Send(e.Reply()))
}

func TestExecutorStaleFinishIgnored(t *testing.T) {
	x, cmds := newTestExecutor()
	ctx := context.Background()
	require.NoError(t, x.EnqueueOpcode(0x01, 1, 0))
	require.NoError(t, x.EnqueueOpcode(0x01, 2, 0))
	require.True(t, x.ExecuteNext(ctx))
	first := cmds.last()
	for !x.Tick() {
	}
	require.True(t, x.ExecuteNext(ctx))
	second := cmds.last()

	require.False(t, first.Finish(true))
	require.Equal(t, StateRunning, x.Snapshot().State)
	require.True(t, second.Finish(true))
	require.Equal(t, StateIdle, x.Snapshot().State)
}

func TestExecutorFailureAcks(t *testing.T) {
	x, cmds := newTestExecutor()
	require.NoError(t, x.EnqueueOpcode(0x02, 0, 0))
	require.True(t, x.ExecuteNext(context.Background()))
	require.False(t, cmds.completions[0].Succeeded)
	require.False(t, cmds.completions[0].TimedOut)
	payload, ok := x.Composer.Take()
	require.True(t, ok)
	require.Equal(t, Ack{Opcode: 0x02, Status: comm.AckFailed}.Payload(), payload)
	require.False(t, x.Snapshot().PrevSucceeded)
}

func TestExecutorNotify(t *testing.T) {
	x, _ := newTestExecutor()
	var notified int
	x.Notify = func() { notified++ }
	require.NoError(t, x.EnqueueOpcode(0x00, 0, 0))
	require.Equal(t, 1, notified)
	x.ExecuteNext(context.Background())
	require.Equal(t, 2, notified)
}
