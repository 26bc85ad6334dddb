package ir

import "sync/atomic"

// Sequencer hands out strictly increasing op sequence numbers.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock stamping operations in emission
// order. The zero value starts at 0; the first Next returns 1.
//
// Thread-safety: safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, for appending to a
// stored bundle.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
