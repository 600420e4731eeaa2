package timectrl

import (
	"sync"
	"time"
)

// Clock is the time source used to measure runs. Benchmarks depend on the
// abstraction rather than time.Now so that timings are testable.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Since returns the time elapsed on c since t.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// FakeClock is a manually advanced Clock. AutoStep, when non-zero, is added
// after every Now call so consecutive readings differ by a fixed amount.
type FakeClock struct {
	mu       sync.Mutex
	now      time.Time
	AutoStep time.Duration
}

// NewFakeClock returns a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now implements Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.AutoStep)
	return now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SetTime jumps the clock to t.
func (c *FakeClock) SetTime(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Heartbeat fires registered listeners at a fixed wall-clock interval until
// stopped. Long benchmark sweeps use it for periodic progress reports.
type Heartbeat struct {
	mu       sync.RWMutex
	Interval time.Duration

	beats     int
	last      time.Time
	listeners []func(time.Time)

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHeartbeat constructs a heartbeat with the given interval.
func NewHeartbeat(interval time.Duration) *Heartbeat {
	return &Heartbeat{
		Interval: interval,
		stop:     make(chan struct{}),
	}
}

// AddListener registers a callback invoked on every beat. Listeners must be
// added before Start.
func (h *Heartbeat) AddListener(fn func(time.Time)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Beats returns how many times the heartbeat has fired.
func (h *Heartbeat) Beats() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.beats
}

// Last returns the time of the most recent beat.
func (h *Heartbeat) Last() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Start runs the heartbeat in a separate goroutine for at most duration
// (unbounded when duration <= 0) or until Stop is called. It returns a
// channel that is closed when the heartbeat finishes.
func (h *Heartbeat) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(h.Interval)
		defer ticker.Stop()

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			var now time.Time
			select {
			case <-h.stop:
				return
			case now = <-ticker.C:
			}
			elapsed += h.Interval

			h.mu.Lock()
			h.beats++
			h.last = now
			listeners := append([]func(time.Time){}, h.listeners...)
			h.mu.Unlock()

			for _, fn := range listeners {
				fn(now)
			}
		}
	}()
	return done
}

// Stop ends the heartbeat. It is safe to call more than once.
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}
