// Package timer implements the rest countdown shown between sets.
package timer

import (
	"sync"
	"time"
)

// State is the lifecycle of a Countdown.
type State string

const (
	Idle     State = "idle"
	Running  State = "running"
	Paused   State = "paused"
	Finished State = "finished"
)

// DefaultDuration is used when a countdown is created with zero seconds.
const DefaultDuration = 90

// Ticker delivers one value per tick until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker returns a time.Ticker with period d.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Snapshot is the observable state of a countdown.
type Snapshot struct {
	State     State `json:"state"`
	Remaining int   `json:"remaining"`
	Duration  int   `json:"duration"`
}

// Progress is the elapsed share of the countdown, 0 to 100.
func (s Snapshot) Progress() int {
	if s.Duration <= 0 {
		return 0
	}
	return (s.Duration - s.Remaining) * 100 / s.Duration
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithTickerFactory replaces the one-second ticker.
func WithTickerFactory(f func(time.Duration) Ticker) Option {
	return func(c *Countdown) { c.newTicker = f }
}

// WithOnTick is called with the remaining seconds after every tick.
func WithOnTick(fn func(remaining int)) Option {
	return func(c *Countdown) { c.onTick = fn }
}

// WithOnFinish is called once when the countdown reaches zero or is skipped.
func WithOnFinish(fn func()) Option {
	return func(c *Countdown) { c.onFinish = fn }
}

// Countdown counts seconds down to zero on its own goroutine. Callbacks run
// on that goroutine, or on the caller's for Skip, and must not call back
// into the countdown.
type Countdown struct {
	newTicker func(time.Duration) Ticker
	onTick    func(int)
	onFinish  func()

	mu        sync.Mutex
	state     State
	duration  int
	remaining int
	stop      chan struct{}
	done      chan struct{}
}

// New returns an idle countdown of seconds.
func New(seconds int, opts ...Option) *Countdown {
	if seconds <= 0 {
		seconds = DefaultDuration
	}
	c := &Countdown{
		newTicker: NewRealTicker,
		state:     Idle,
		duration:  seconds,
		remaining: seconds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Remaining: c.remaining, Duration: c.duration}
}

// Start runs an idle or finished countdown from the full duration, or
// resumes a paused one. Starting a running countdown does nothing.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Running:
		return
	case Idle, Finished:
		c.remaining = c.duration
	}
	// A finished loop has already returned; this only reaps its channels.
	wait(c.detachLocked())
	c.runLocked()
}

// Pause stops ticking and keeps the remaining time. It returns once the
// ticking goroutine has exited.
func (c *Countdown) Pause() {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return
	}
	c.state = Paused
	stop, done := c.detachLocked()
	c.mu.Unlock()
	wait(stop, done)
}

// Toggle pauses a running countdown and starts any other.
func (c *Countdown) Toggle() {
	if c.Snapshot().State == Running {
		c.Pause()
		return
	}
	c.Start()
}

// Reset restarts the countdown from the full duration.
func (c *Countdown) Reset() {
	c.halt()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = c.duration
	c.runLocked()
}

// Skip jumps to zero and finishes immediately.
func (c *Countdown) Skip() {
	c.halt()
	c.mu.Lock()
	if c.state == Finished {
		c.mu.Unlock()
		return
	}
	c.remaining = 0
	c.state = Finished
	c.mu.Unlock()
	if c.onFinish != nil {
		c.onFinish()
	}
}

// Stop halts the countdown and returns it to idle at the full duration.
// It returns once the ticking goroutine has exited.
func (c *Countdown) Stop() {
	c.halt()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	c.remaining = c.duration
}

// runLocked starts the ticking goroutine. c.mu must be held and no
// goroutine may be running.
func (c *Countdown) runLocked() {
	c.state = Running
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done
	t := c.newTicker(time.Second)
	go c.loop(t, stop, done)
}

// halt stops the ticking goroutine, if any, and waits for it.
func (c *Countdown) halt() {
	c.mu.Lock()
	stop, done := c.detachLocked()
	c.mu.Unlock()
	wait(stop, done)
}

func (c *Countdown) detachLocked() (chan struct{}, chan struct{}) {
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	return stop, done
}

func wait(stop, done chan struct{}) {
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Countdown) loop(t Ticker, stop, done chan struct{}) {
	defer close(done)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C():
		}

		c.mu.Lock()
		if c.stop != stop {
			c.mu.Unlock()
			return
		}
		c.remaining--
		remaining := c.remaining
		finished := remaining <= 0
		if finished {
			c.remaining = 0
			c.state = Finished
		}
		c.mu.Unlock()

		if c.onTick != nil {
			c.onTick(remaining)
		}
		if finished {
			if c.onFinish != nil {
				c.onFinish()
			}
			return
		}
	}
}
