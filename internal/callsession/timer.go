package callsession

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer counts active call seconds and publishes them as mm:ss. Like the Ringer it is
// single use: once stopped it never ticks again.
type Timer struct {
	clock  clock.Clock
	onTick func(elapsedSeconds int, formatted string)

	mu      sync.Mutex
	elapsed int
	stopped bool
	ticker  *clock.Ticker
	done    chan struct{}
}

func NewTimer(clk clock.Clock, onTick func(elapsedSeconds int, formatted string)) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	return &Timer{clock: clk, onTick: onTick}
}

// Start begins ticking once per second. Starting a running or stopped timer is a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker != nil || t.stopped {
		return
	}
	t.ticker = t.clock.Ticker(time.Second)
	t.done = make(chan struct{})
	go t.run(t.ticker, t.done)
}

// Stop cancels ticking and resets the counter. Safe to call repeatedly, and before Start.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.ticker != nil {
		t.ticker.Stop()
		close(t.done)
		t.ticker = nil
		t.done = nil
	}
	t.elapsed = 0
}

// Running reports whether the timer is ticking.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticker != nil
}

func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

func (t *Timer) Formatted() string {
	return FormatElapsed(t.Elapsed())
}

func (t *Timer) run(tk *clock.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-tk.C:
			t.mu.Lock()
			if t.done != done {
				t.mu.Unlock()
				return
			}
			t.elapsed++
			n := t.elapsed
			t.mu.Unlock()

			if t.onTick != nil {
				t.onTick(n, FormatElapsed(n))
			}
		}
	}
}

// FormatElapsed renders seconds as mm:ss. Minutes are not wrapped into hours.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
