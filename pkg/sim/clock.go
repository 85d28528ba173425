package sim

import (
	"sync"
	"time"
)

// Clock is a settable real-time clock kept as an offset from a time source.
type Clock struct {
	// Source defaults to time.Now.
	Source func() time.Time

	lock   sync.Mutex
	offset time.Duration
}

// NewClock creates a Clock starting at t. A zero t follows the source.
func NewClock(t time.Time) *Clock {
	c := &Clock{}
	if !t.IsZero() {
		c.Set(t)
	}
	return c
}

func (c *Clock) source() time.Time {
	if fn := c.Source; fn != nil {
		return fn()
	}
	return time.Now()
}

// Now implements obc.Clock.
func (c *Clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.source().Add(c.offset).UTC().Truncate(time.Second)
}

// Set implements obc.Clock.
func (c *Clock) Set(t time.Time) error {
	c.lock.Lock()
	c.offset = t.Sub(c.source())
	c.lock.Unlock()
	return nil
}
