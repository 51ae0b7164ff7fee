package utils

import (
	"sync"
	"time"
)

// MonotonicClock hands out strictly increasing UTC timestamps. The
// model_parameters table orders rows purely by created_at, so appends made
// in the same wall-clock instant must still come out distinct and ordered.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
