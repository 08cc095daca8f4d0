package feed

import (
	"sync"
	"time"
)

// ScoreClock hands out strictly increasing millisecond timestamps, so no
// two likes stamped by one process share a sorted-set score.
type ScoreClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewScoreClock creates a clock reading the wall clock.
func NewScoreClock() *ScoreClock {
	return &ScoreClock{now: time.Now}
}

// Next returns a timestamp at or after the current time and strictly after
// every timestamp previously returned.
func (c *ScoreClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return time.UnixMilli(ms).UTC()
}

// Score converts a like time to its sorted-set score.
func Score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
