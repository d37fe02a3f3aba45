package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// harness drives a countdown with fake tickers and records callbacks.
type harness struct {
	mu       sync.Mutex
	tickers  []*fakeTicker
	ticks    chan int
	finished chan struct{}
}

func newHarness() *harness {
	return &harness{ticks: make(chan int, 100), finished: make(chan struct{}, 10)}
}

func (h *harness) factory(time.Duration) Ticker {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time)}
	h.tickers = append(h.tickers, t)
	return t
}

func (h *harness) current() *fakeTicker {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tickers[len(h.tickers)-1]
}

// tick sends one tick and waits for the countdown to process it.
func (h *harness) tick(t *testing.T) int {
	t.Helper()
	h.current().c <- time.Now()
	select {
	case n := <-h.ticks:
		return n
	case <-time.After(time.Second):
		t.Fatal("tick not processed")
		return 0
	}
}

func (h *harness) countdown(seconds int) *Countdown {
	return New(seconds,
		WithTickerFactory(h.factory),
		WithOnTick(func(n int) { h.ticks <- n }),
		WithOnFinish(func() { h.finished <- struct{}{} }),
	)
}

// TestCountdownRunsToZero verifies ticks count down and finish fires once.
func TestCountdownRunsToZero(t *testing.T) {
	h := newHarness()
	c := h.countdown(3)
	assert.Equal(t, Idle, c.Snapshot().State)

	c.Start()
	assert.Equal(t, 2, h.tick(t))
	assert.Equal(t, 33, c.Snapshot().Progress())
	assert.Equal(t, 1, h.tick(t))
	assert.Equal(t, 0, h.tick(t))

	select {
	case <-h.finished:
	case <-time.After(time.Second):
		t.Fatal("finish not called")
	}
	snap := c.Snapshot()
	assert.Equal(t, Finished, snap.State)
	assert.Equal(t, 0, snap.Remaining)
	assert.Equal(t, 100, snap.Progress())

	c.Stop()
	assert.True(t, h.current().isStopped())
	assert.Equal(t, Idle, c.Snapshot().State)
	assert.Equal(t, 3, c.Snapshot().Remaining)
}

// TestCountdownPauseResume verifies pausing keeps the remaining time.
func TestCountdownPauseResume(t *testing.T) {
	h := newHarness()
	c := h.countdown(10)
	c.Start()
	h.tick(t)
	h.tick(t)

	c.Pause()
	first := h.current()
	assert.True(t, first.isStopped())
	assert.Equal(t, Snapshot{State: Paused, Remaining: 8, Duration: 10}, c.Snapshot())

	c.Toggle()
	assert.Equal(t, Running, c.Snapshot().State)
	assert.NotSame(t, first, h.current())
	assert.Equal(t, 7, h.tick(t))

	c.Toggle()
	assert.Equal(t, Paused, c.Snapshot().State)
	c.Stop()
}

// TestCountdownReset verifies reset restarts from the full duration.
func TestCountdownReset(t *testing.T) {
	h := newHarness()
	c := h.countdown(5)
	c.Start()
	h.tick(t)
	h.tick(t)

	c.Reset()
	snap := c.Snapshot()
	assert.Equal(t, Running, snap.State)
	assert.Equal(t, 5, snap.Remaining)
	assert.Equal(t, 4, h.tick(t))
	c.Stop()
}

// TestCountdownSkip verifies skip finishes immediately and stops ticking.
func TestCountdownSkip(t *testing.T) {
	h := newHarness()
	c := h.countdown(60)
	c.Start()

	c.Skip()
	require.Len(t, h.finished, 1)
	assert.Equal(t, Finished, c.Snapshot().State)
	assert.True(t, h.current().isStopped())

	c.Skip()
	assert.Len(t, h.finished, 1, "skip on a finished countdown must not fire again")

	c.Start()
	assert.Equal(t, 60, c.Snapshot().Remaining)
	c.Stop()
}

// TestCountdownDefaults verifies a zero duration falls back to the default.
func TestCountdownDefaults(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultDuration, c.Snapshot().Duration)
	c.Pause()
	c.Stop()
	assert.Equal(t, Idle, c.Snapshot().State)
}

// TestCountdownRealTicker verifies the default ticker stops cleanly.
func TestCountdownRealTicker(t *testing.T) {
	c := New(1)
	c.Start()
	assert.Equal(t, Running, c.Snapshot().State)
	c.Stop()
}
