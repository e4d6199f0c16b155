package estimator

import (
	"sync/atomic"
	"time"
)

// Clock abstracts the time source for testability.
type Clock interface {
	// Timestamp returns the current time in milliseconds.
	Timestamp() uint64
}

type realClock struct {
	anchor time.Time
}

func (c *realClock) Timestamp() uint64 {
	// time.Since uses the monotonic reading, so wall clock steps don't leak in.
	ns := c.anchor.UnixNano() + time.Since(c.anchor).Nanoseconds()
	return uint64(ns) / 1_000_000
}

// NewRealClock returns a clock that uses the system's time.
func NewRealClock() Clock {
	return &realClock{anchor: time.Now()}
}

// ManualClock is a clock whose timestamp only changes when told to.
type ManualClock struct {
	ts atomic.Uint64
}

// NewManualClock returns a ManualClock reading ts.
func NewManualClock(ts uint64) *ManualClock {
	c := &ManualClock{}
	c.ts.Store(ts)
	return c
}

func (c *ManualClock) Timestamp() uint64 {
	return c.ts.Load()
}

// Set makes every following Timestamp call return ts.
func (c *ManualClock) Set(ts uint64) {
	c.ts.Store(ts)
}

// Advance moves the clock forward by d milliseconds and returns the new value.
func (c *ManualClock) Advance(d uint64) uint64 {
	return c.ts.Add(d)
}
