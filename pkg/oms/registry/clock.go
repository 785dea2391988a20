package registry

import (
	"sync"
	"time"
)

// monotonicClock never returns the same instant twice, so internally stamped
// events always order strictly after one another.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	if now == nil {
		now = time.Now
	}
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().Round(0)
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// observe makes later readings strictly after t.
func (c *monotonicClock) observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t
	}
}
