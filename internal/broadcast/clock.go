package broadcast

import (
	"sync"
	"time"
)

// Clock supplies dispatch timestamps in milliseconds since the epoch.
type Clock interface {
	NowMillis() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// monotonicClock never returns a value smaller than one it returned before,
// even if the wall clock steps backwards.
type monotonicClock struct {
	mu   sync.Mutex
	base Clock
	last int64
}

func newMonotonicClock(base Clock) *monotonicClock {
	return &monotonicClock{base: base}
}

func (c *monotonicClock) NowMillis() int64 {
	now := c.base.NowMillis()

	c.mu.Lock()
	defer c.mu.Unlock()
	if now < c.last {
		now = c.last
	}
	c.last = now
	return now
}
