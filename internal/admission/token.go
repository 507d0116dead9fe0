// Package admission implements the global, process-wide connection ceiling:
// cheap O(1) load-shedding at the network edge, before a room actor ever
// sees the connection, via Go's scoped-release idiom (Token.Release).
package admission

import (
	"sync"
	"sync/atomic"
)

// Counter is a single atomic connection counter bounded by a ceiling.
type Counter struct {
	ceiling int64
	live    atomic.Int64
}

// NewCounter builds a counter that refuses admission once live connections
// would exceed ceiling.
func NewCounter(ceiling int64) *Counter {
	return &Counter{ceiling: ceiling}
}

// Token represents one admitted connection's slot. Release decrements the
// counter exactly once, regardless of how many times it is called, so a
// deferred Release is safe on every exit path of the connection task.
type Token struct {
	counter *Counter
	once    sync.Once
}

// Acquire increments the live count and returns a Token if the ceiling was
// not exceeded. On refusal the counter is decremented back and the caller
// is rejected.
func (c *Counter) Acquire() (*Token, bool) {
	n := c.live.Add(1)
	if n > c.ceiling {
		c.live.Add(-1)
		return nil, false
	}
	return &Token{counter: c}, true
}

// Release returns the slot to the pool. Safe to call multiple times or
// defer unconditionally.
func (t *Token) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.counter.live.Add(-1)
	})
}

// Live reports the current live connection count, for metrics/health.
func (c *Counter) Live() int64 {
	return c.live.Load()
}

// Ceiling reports the configured admission ceiling.
func (c *Counter) Ceiling() int64 {
	return c.ceiling
}
