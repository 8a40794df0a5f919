package parallel

import (
	"log"
	"sync"
	"time"
)

// DefaultFutureTimeout bounds how long Get waits when no explicit timeout is
// given.
const DefaultFutureTimeout = 10 * time.Second

// Future carries a value, a typed error, or a timeout from one goroutine to
// its waiters. A future is set exactly once; later sets are ignored.
type Future struct {
	done chan struct{}
	once sync.Once
	val  interface{}
	err  error
}

// NewFuture returns an unset future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Set fulfils the future with a value.
func (f *Future) Set(val interface{}) {
	f.once.Do(func() {
		f.val = val
		close(f.done)
	})
}

// SetError fulfils the future with an error.
func (f *Future) SetError(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// IsSet returns true once the future holds a value or error.
func (f *Future) IsSet() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// EnsureSet is deferred around code that should have set the future: if the
// scope exits without setting it, waiters get the given error instead of
// deadlocking.
func (f *Future) EnsureSet(err error) {
	if !f.IsSet() {
		f.SetError(err)
	}
}

// Get waits up to timeout for the future. A zero timeout means
// DefaultFutureTimeout; a negative timeout waits indefinitely. Expiry
// returns ErrTimeout, distinct from any error the setter stored.
func (f *Future) Get(timeout time.Duration) (interface{}, error) {
	if timeout == 0 {
		timeout = DefaultFutureTimeout
	}
	if timeout < 0 {
		<-f.done
		return f.val, f.err
	}

	select {
	case <-f.done:
		return f.val, f.err
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// MainDispatcher queues functions for execution on the main thread. Workers
// call CallOnMain and wait on the returned future; the main loop calls
// Drain between frames.
type MainDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

// NewMainDispatcher returns an empty dispatcher.
func NewMainDispatcher() *MainDispatcher {
	return &MainDispatcher{}
}

// CallOnMain schedules fn for the next Drain and returns a future for its
// result. Fire-and-forget callers simply discard the future.
func (d *MainDispatcher) CallOnMain(fn func() (interface{}, error)) *Future {
	f := NewFuture()
	d.mu.Lock()
	d.queue = append(d.queue, func() {
		defer f.EnsureSet(ErrCancelled)
		v, err := fn()
		if err != nil {
			f.SetError(err)
		} else {
			f.Set(v)
		}
	})
	d.mu.Unlock()
	return f
}

// Drain runs every queued call. It must be called from the main thread,
// normally once per frame boundary. A panic in one call is logged and does
// not stop the rest of the queue.
func (d *MainDispatcher) Drain() {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, fn := range queue {
		drainOne(fn)
	}
}

func drainOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Main-thread call panicked: %v", r)
		}
	}()
	fn()
}

// Pending returns the number of queued calls.
func (d *MainDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
