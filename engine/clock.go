package engine

import "time"

// Clock is the virtual time of a simulation. It only moves forward, one
// tick at a time.
type Clock struct {
	Tick uint64
	Now  time.Time
}

// Advance moves the clock one tick ahead.
func (c *Clock) Advance(d time.Duration) {
	c.Tick++
	c.Now = c.Now.Add(d)
}
