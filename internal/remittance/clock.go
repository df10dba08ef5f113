package remittance

import (
	"sync"
	"time"
)

// Clock returns the current time in unix seconds.
type Clock interface {
	Now() uint64
}

type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// SystemClock never goes backwards, even if the wall clock is stepped back.
type SystemClock struct {
	mu   sync.Mutex
	last uint64
}

func (c *SystemClock) Now() uint64 {
	now := uint64(time.Now().Unix())
	c.mu.Lock()
	defer c.mu.Unlock()
	if now < c.last {
		return c.last
	}
	c.last = now
	return now
}
