package repr

import (
	"sync"
	"time"

	"github.com/medview/medview/parallel"
)

// DefaultCoalesceDelay collapses bursts of mutations, like a control point
// being dragged, into one rebuild cycle.
const DefaultCoalesceDelay = 50 * time.Millisecond

// Coalescer debounces repeated triggers into a single callback. When a
// dispatcher is set, the callback runs on the main thread; otherwise it
// runs on the timer goroutine.
type Coalescer struct {
	mu         sync.Mutex
	delay      time.Duration
	dispatcher *parallel.MainDispatcher
	timer      *time.Timer
	pending    func()
}

func NewCoalescer(delay time.Duration, d *parallel.MainDispatcher) *Coalescer {
	if delay <= 0 {
		delay = DefaultCoalesceDelay
	}
	return &Coalescer{delay: delay, dispatcher: d}
}

// Trigger schedules fn after the delay. A trigger during the window
// replaces the pending callback and restarts the clock, so only the last
// one runs.
func (c *Coalescer) Trigger(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = fn
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.fire)
}

func (c *Coalescer) fire() {
	c.mu.Lock()
	fn := c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()
	if fn == nil {
		return
	}
	if c.dispatcher != nil {
		c.dispatcher.CallOnMain(func() (interface{}, error) {
			fn()
			return nil, nil
		})
		return
	}
	fn()
}

// Flush runs any pending callback immediately.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	fn := c.pending
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop drops any pending callback without running it.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
