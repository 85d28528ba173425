package command

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/obc.go/pkg/l0/comm"
)

// Enqueuer accepts commands.
type Enqueuer interface {
	Enqueue(ref Ref, arg1, arg2 uint32) error
}

// Acker records acknowledgments, like Composer.
type Acker interface {
	Ack(op Opcode, status comm.AckStatus)
}

// AutoCollection is the periodic collection setting of one block type.
type AutoCollection struct {
	Enabled bool
	// Period in ticks (seconds).
	Period uint32
	// Count of ticks since the last collection.
	Count uint32
}

// AutoCollector periodically enqueues a collect command for each enabled
// block type, regardless of what the executor is doing.
type AutoCollector struct {
	Enqueuer Enqueuer
	// Ref is the collect command, block type as arg1.
	Ref Ref
	// Acker receives AckQueueFull for Opcode when a collection can't be
	// queued.
	Acker  Acker
	Opcode Opcode
	// MinPeriod bounds SetPeriod.
	MinPeriod uint32
	// Interval is the tick period of Run.
	Interval time.Duration

	lock  sync.Mutex
	types []AutoCollection
}

// NewAutoCollector creates an AutoCollector with one disabled entry per
// default period.
func NewAutoCollector(enq Enqueuer, ref Ref, periods ...uint32) *AutoCollector {
	c := &AutoCollector{
		Enqueuer: enq,
		Ref:      ref,
		Interval: time.Second,
		types:    make([]AutoCollection, len(periods)),
	}
	for n, p := range periods {
		c.types[n].Period = p
	}
	return c
}

// Name implements fx.Named.
func (c *AutoCollector) Name() string {
	return "auto-collector"
}

// Run implements fx.Runnable.
func (c *AutoCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick advances the counters and enqueues due collections.
func (c *AutoCollector) Tick() {
	var due []uint32
	c.lock.Lock()
	for n := range c.types {
		t := &c.types[n]
		if !t.Enabled {
			continue
		}
		t.Count++
		if t.Count >= t.Period {
			t.Count = 0
			due = append(due, uint32(n))
		}
	}
	c.lock.Unlock()
	for _, blockType := range due {
		glog.V(2).Infof("auto collecting block type %d", blockType)
		err := c.Enqueuer.Enqueue(c.Ref, blockType, 0)
		if err == nil {
			continue
		}
		glog.Warningf("auto collect block type %d: %v", blockType, err)
		if err == ErrQueueFull && c.Acker != nil {
			c.Acker.Ack(c.Opcode, comm.AckQueueFull)
		}
	}
}

func (c *AutoCollector) update(blockType uint32, fn func(*AutoCollection) error) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if blockType >= uint32(len(c.types)) {
		return ErrBlockType
	}
	return fn(&c.types[blockType])
}

// Enable turns collection of a block type on or off.
func (c *AutoCollector) Enable(blockType uint32, on bool) error {
	return c.update(blockType, func(t *AutoCollection) error {
		t.Enabled = on
		return nil
	})
}

// SetPeriod changes the period of a block type.
func (c *AutoCollector) SetPeriod(blockType, period uint32) error {
	if period == 0 || period < c.MinPeriod {
		return ErrPeriodTooShort
	}
	return c.update(blockType, func(t *AutoCollection) error {
		t.Period = period
		return nil
	})
}

// Resync restarts the count of a block type.
func (c *AutoCollector) Resync(blockType uint32) error {
	return c.update(blockType, func(t *AutoCollection) error {
		t.Count = 0
		return nil
	})
}

// ResyncAll restarts every count.
func (c *AutoCollector) ResyncAll() {
	c.lock.Lock()
	for n := range c.types {
		c.types[n].Count = 0
	}
	c.lock.Unlock()
}

// Settings returns a copy of all entries, indexed by block type.
func (c *AutoCollector) Settings() []AutoCollection {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]AutoCollection(nil), c.types...)
}
