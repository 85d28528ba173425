package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/obc.go/pkg/l0/comm"
)

type enqueued struct {
	Ref        Ref
	Arg1, Arg2 uint32
}

type fakeEnqueuer struct {
	lock sync.Mutex
	cmds []enqueued
	err  error
}

func (f *fakeEnqueuer) Enqueue(ref Ref, arg1, arg2 uint32) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, enqueued{ref, arg1, arg2})
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.cmds)
}

func TestAutoCollectorPeriod(t *testing.T) {
	enq := &fakeEnqueuer{}
	c := NewAutoCollector(enq, 6, 60, 120, 300)
	c.MinPeriod = 1
	require.NoError(t, c.SetPeriod(1, 3))
	for n := 0; n < 10; n++ {
		c.Tick()
	}
	require.Empty(t, enq.cmds)

	require.NoError(t, c.Enable(1, true))
	c.Tick()
	c.Tick()
	require.Empty(t, enq.cmds)
	c.Tick()
	require.Equal(t, []enqueued{{6, 1, 0}}, enq.cmds)
	require.Zero(t, c.Settings()[1].Count)
	c.Tick()
	c.Tick()
	c.Tick()
	require.Equal(t, []enqueued{{6, 1, 0}, {6, 1, 0}}, enq.cmds)
}

func TestAutoCollectorSettings(t *testing.T) {
	enq := &fakeEnqueuer{}
	c := NewAutoCollector(enq, 6, 60, 120, 300)
	c.MinPeriod = 60
	require.Equal(t, ErrPeriodTooShort, c.SetPeriod(0, 59))
	require.Equal(t, ErrPeriodTooShort, c.SetPeriod(0, 0))
	require.Equal(t, ErrBlockType, c.SetPeriod(3, 60))
	require.Equal(t, ErrBlockType, c.Enable(3, true))
	require.NoError(t, c.SetPeriod(2, 60))

	require.NoError(t, c.Enable(0, true))
	require.NoError(t, c.Enable(2, true))
	for n := 0; n < 30; n++ {
		c.Tick()
	}
	settings := c.Settings()
	require.Equal(t, AutoCollection{Enabled: true, Period: 60, Count: 30}, settings[0])
	require.Equal(t, AutoCollection{Period: 120}, settings[1])
	require.NoError(t, c.Resync(0))
	require.Zero(t, c.Settings()[0].Count)
	require.Equal(t, uint32(30), c.Settings()[2].Count)
	c.ResyncAll()
	require.Zero(t, c.Settings()[2].Count)

	// a full queue doesn't stop counting, and is acknowledged
	composer := NewComposer()
	c.Acker, c.Opcode = composer, 0x06
	enq.err = ErrQueueFull
	for n := 0; n < 60; n++ {
		c.Tick()
	}
	require.Empty(t, enq.cmds)
	require.Zero(t, c.Settings()[0].Count)
	ack, ok := composer.Acks.Take()
	require.True(t, ok)
	require.Equal(t, Ack{Opcode: 0x06, Status: comm.AckQueueFull}, ack)
}

func TestAutoCollectorRun(t *testing.T) {
	enq := &fakeEnqueuer{}
	c := NewAutoCollector(enq, 6, 1)
	c.Interval = 10 * time.Millisecond
	require.NoError(t, c.Enable(0, true))
	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	require.Equal(t, context.DeadlineExceeded, c.Run(ctx))
	require.True(t, enq.count() >= 3)
}
