package store

import (
	"sync/atomic"
	"time"
)

// Clock supplies creation timestamps to stores.
type Clock interface {
	Now() time.Time
}

// MonotonicClock returns strictly increasing UTC timestamps, even when the
// wall clock stalls or steps backwards, so createdAt never decreases with
// insertion order.
type MonotonicClock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewMonotonicClock creates a MonotonicClock backed by time.Now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

// Now implements Clock. Values have microsecond precision so they survive a
// round trip through every supported backend unchanged.
func (c *MonotonicClock) Now() time.Time {
	for {
		now := c.now().UnixMicro()
		last := c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return time.UnixMicro(now).UTC()
		}
	}
}
