// Package refresh measures the display's actual refresh rate.
package refresh

import (
	"math"
	"sync"
	"time"

	"go.aimuz.me/stimui/display"
)

// DefaultWindow is the measurement window used when none is given.
const DefaultWindow = time.Second

// Estimator counts frame callbacks over a fixed wall-clock window.
//
// The measurement is a single sample: there is no averaging and no retry, so a
// window disturbed by a dropped frame or a compositor hiccup is reported as is.
type Estimator struct {
	window time.Duration
	start  time.Time
	frames int

	mu     sync.Mutex
	done   bool
	result int
	cancel func()
	onDone func(hz int)
	doneCh chan struct{}
}

// Start subscribes to src. The window opens on the first delivered frame, so
// time spent before the display produces frames (page load, window mapping)
// is not counted. onDone is invoked exactly once, from the frame callback that
// closes the window.
func Start(src display.Source, window time.Duration, onDone func(hz int)) *Estimator {
	if window <= 0 {
		window = DefaultWindow
	}
	e := &Estimator{
		window: window,
		onDone: onDone,
		doneCh: make(chan struct{}),
	}
	e.mu.Lock()
	e.cancel = src.Subscribe(e.onFrame)
	e.mu.Unlock()
	return e
}

func (e *Estimator) onFrame(now time.Time) {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	if e.start.IsZero() {
		e.start = now
		e.mu.Unlock()
		return
	}
	if !now.After(e.start.Add(e.window)) {
		e.frames++
		e.mu.Unlock()
		return
	}

	e.done = true
	e.result = Compute(e.frames, e.window)
	cancel := e.cancel
	onDone := e.onDone
	hz := e.result
	close(e.doneCh)
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if onDone != nil {
		onDone(hz)
	}
}

// Done is closed once the measurement has resolved.
func (e *Estimator) Done() <-chan struct{} {
	return e.doneCh
}

// Result returns the measured rate and whether the measurement has resolved.
func (e *Estimator) Result() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.done
}

// Frames returns the number of frames counted so far.
func (e *Estimator) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Compute converts a frame count over window into whole hertz.
func Compute(frames int, window time.Duration) int {
	if window <= 0 || frames <= 0 {
		return 0
	}
	return int(math.Round(float64(frames) / window.Seconds()))
}
