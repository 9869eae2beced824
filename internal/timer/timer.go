// Package timer implements the local breakout countdown.
package timer

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTick is one countdown step.
const DefaultTick = time.Second

// Countdown counts down from a number of minutes in whole ticks. It is local
// to one client; nothing is synchronized between participants.
type Countdown struct {
	tick time.Duration

	mu        sync.Mutex
	remaining int
	stop      chan struct{}
	done      chan struct{}
	onTick    func(remaining int)
	onExpire  func()
}

// New creates an idle countdown. A non-positive tick uses DefaultTick.
func New(tick time.Duration) *Countdown {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Countdown{tick: tick}
}

// OnTick registers a callback receiving the remaining ticks after each step.
func (c *Countdown) OnTick(fn func(remaining int)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// OnExpire registers a callback fired once when the countdown reaches zero.
func (c *Countdown) OnExpire(fn func()) {
	c.mu.Lock()
	c.onExpire = fn
	c.mu.Unlock()
}

// Start (re)starts the countdown at minutes*60 ticks. Non-positive minutes
// stop the countdown.
func (c *Countdown) Start(minutes int) {
	c.Stop()
	if minutes <= 0 {
		return
	}

	c.mu.Lock()
	c.remaining = minutes * 60
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go c.run(stop, done)
}

// Stop halts the countdown and resets the remaining time to zero. It must
// not be called from an OnTick callback.
func (c *Countdown) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.remaining = 0
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Remaining returns the ticks left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether a countdown is active.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Countdown) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.stop != stop {
			// Stopped or restarted while the tick was pending.
			c.mu.Unlock()
			return
		}
		c.remaining--
		remaining := c.remaining
		onTick, onExpire := c.onTick, c.onExpire
		expired := remaining <= 0
		if expired {
			c.remaining = 0
			c.stop, c.done = nil, nil
		}
		c.mu.Unlock()

		if onTick != nil {
			onTick(remaining)
		}
		if expired {
			if onExpire != nil {
				onExpire()
			}
			return
		}
	}
}

// Format renders ticks as M:SS.
func Format(remaining int) string {
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%d:%02d", remaining/60, remaining%60)
}
