// Package ninja runs the Fraction Ninja line-cutting levels: per-level
// countdowns, cut scoring and the step result reported to progress.
package ninja

import (
	"sync"
	"time"
)

// scheduleFunc runs f after d and returns a function that cancels it
type scheduleFunc func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Countdown is a pausable level timer. onExpire runs on its own goroutine
// when the time runs out; callbacks from a stopped or restarted timer are dropped.
type Countdown struct {
	mu        sync.Mutex
	duration  time.Duration
	remaining time.Duration
	startedAt time.Time
	running   bool
	expired   bool
	stop      func() bool
	gen       uint64
	onExpire  func()

	now      func() time.Time
	schedule scheduleFunc
}

// NewCountdown creates a stopped countdown of length d
func NewCountdown(d time.Duration, onExpire func()) *Countdown {
	return newCountdown(d, onExpire, time.Now, afterFunc)
}

func newCountdown(d time.Duration, onExpire func(), now func() time.Time, schedule scheduleFunc) *Countdown {
	return &Countdown{
		duration:  d,
		remaining: d,
		onExpire:  onExpire,
		now:       now,
		schedule:  schedule,
	}
}

// Start (re)starts the countdown from its full duration
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.remaining = c.duration
	c.expired = false
	c.runLocked()
}

// Pause freezes the remaining time
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.remaining = c.remainingLocked()
	c.cancelLocked()
}

// Resume continues a paused countdown
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running || c.expired || c.remaining <= 0 {
		return
	}
	c.runLocked()
}

// Stop cancels the countdown and keeps the time that was left
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.remaining = c.remainingLocked()
	}
	c.cancelLocked()
}

// Remaining returns the time left, never negative
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// Running reports whether the countdown is ticking
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Expired reports whether the countdown reached zero
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *Countdown) runLocked() {
	c.gen++
	gen := c.gen
	c.startedAt = c.now()
	c.running = true
	c.stop = c.schedule(c.remaining, func() { c.fire(gen) })
}

func (c *Countdown) cancelLocked() {
	c.gen++
	c.running = false
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

func (c *Countdown) remainingLocked() time.Duration {
	if !c.running {
		return c.remaining
	}
	left := c.remaining - c.now().Sub(c.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Countdown) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.expired = true
	c.remaining = 0
	c.stop = nil
	onExpire := c.onExpire
	c.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
}
