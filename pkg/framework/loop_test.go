package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type iterRecord struct {
	levels []int
	ticked bool
	ticks  uint64
}

type recorder struct {
	lock  sync.Mutex
	iters []iterRecord
}

func (r *recorder) at(level int) Controller {
	return ControlFunc(func(cc ControlContext) error {
		r.lock.Lock()
		defer r.lock.Unlock()
		if level == PrLvTop || len(r.iters) == 0 {
			r.iters = append(r.iters, iterRecord{ticked: cc.Ticked(), ticks: cc.Ticks()})
		}
		cur := &r.iters[len(r.iters)-1]
		cur.levels = append(cur.levels, cc.PriorityLevel())
		return nil
	})
}

func (r *recorder) snapshot() []iterRecord {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]iterRecord(nil), r.iters...)
}

func TestLoopTickedAndTriggered(t *testing.T) {
	rec := &recorder{}
	l := NewLoop()
	l.Interval = 30 * time.Millisecond
	l.AddController(PrLvTransmit, rec.at(PrLvTransmit))
	l.AddController(PrLvTop, rec.at(PrLvTop))
	l.AddController(PrLvExecute, rec.at(PrLvExecute))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	l.TriggerNext()
	require.Equal(t, context.DeadlineExceeded, l.Run(ctx))

	iters := rec.snapshot()
	require.True(t, len(iters) >= 3)
	require.False(t, iters[0].ticked)
	require.Zero(t, iters[0].ticks)
	var ticks uint64
	for _, it := range iters {
		require.Equal(t, []int{PrLvTop, PrLvExecute, PrLvTransmit}, it.levels)
		if it.ticked {
			ticks++
			require.Equal(t, ticks, it.ticks)
		}
	}
	require.True(t, ticks >= 2)
}

func TestLoopHooks(t *testing.T) {
	var order []string
	l := NewLoop()
	l.Interval = time.Hour
	l.AddController(PrLvExecute, ControlFunc(func(cc ControlContext) error {
		order = append(order, "ctl")
		cc.PostRun(ControlFunc(func(ControlContext) error {
			order = append(order, "post")
			return nil
		}))
		return errors.New("ignored")
	}))
	l.PreRunAt(PrLvExecute, ControlFunc(func(ControlContext) error {
		order = append(order, "pre")
		return nil
	}))
	l.init()
	l.runIteration(context.Background(), false)
	require.Equal(t, []string{"pre", "ctl", "post"}, order)
	l.runIteration(context.Background(), false)
	require.Equal(t, []string{"pre", "ctl", "post", "ctl", "post"}, order)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errA := errors.New("a")
	err := errs.Add(errA, nil, errors.New("b")).Aggregate()
	require.Error(t, err)
	require.True(t, errors.Is(err, errA))
	require.Equal(t, "2 errors:\n  a\n  b", err.Error())
	var single AggregatedError
	require.Equal(t, "a", single.Add(errA).Error())
}

func TestRunnerRestart(t *testing.T) {
	blocker := RunnableFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	r := NewRunner().Go(NamedRun("a", blocker), NamedRun("b", blocker))
	start := time.Now()
	r.Restart(20 * time.Millisecond)
	r.Restart(time.Hour)
	err := r.Wait()
	require.True(t, errors.Is(err, ErrRestartRequested))
	require.True(t, time.Since(start) >= 20*time.Millisecond)
}

func TestRunnerErrors(t *testing.T) {
	errA := errors.New("a")
	r := NewRunner().Go(
		RunnableFunc(func(context.Context) error { return errA }),
		RunnableFunc(func(context.Context) error { return context.Canceled }),
	)
	err := r.Wait()
	require.True(t, errors.Is(err, errA))
	require.False(t, errors.Is(err, ErrRestartRequested))
}
