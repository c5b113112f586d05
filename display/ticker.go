// Package display provides the per-frame tick source that drives stimulus
// flicker and chart redraws.
//
// A Ticker does not know where frames come from. The desktop build steps it
// from the webview's requestAnimationFrame loop; the console and tests step it
// from RunInterval or by hand.
package display

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Clock provides time. Tests inject a fake to control frame timestamps.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// FrameFunc is called once per displayed frame with the frame timestamp.
type FrameFunc func(now time.Time)

// Source is anything that delivers frame callbacks.
type Source interface {
	Subscribe(fn FrameFunc) (cancel func())
}

// Ticker fans each frame out to its subscribers in subscription order.
type Ticker struct {
	mu     sync.Mutex
	subs   map[uint64]FrameFunc
	nextID uint64
	frames uint64
	last   time.Time
}

// NewTicker creates an empty Ticker.
func NewTicker() *Ticker {
	return &Ticker{subs: make(map[uint64]FrameFunc)}
}

// Subscribe registers fn for every subsequent frame.
func (t *Ticker) Subscribe(fn FrameFunc) (cancel func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Step delivers one frame. Subscribers may cancel themselves or subscribe
// others from inside the callback; changes apply from the next frame.
func (t *Ticker) Step(now time.Time) {
	t.mu.Lock()
	t.frames++
	t.last = now
	if len(t.subs) == 0 {
		t.mu.Unlock()
		return
	}
	ids := make([]uint64, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]FrameFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, t.subs[id])
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}
}

// Subscribers returns the number of registered callbacks.
func (t *Ticker) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Frames returns how many frames have been stepped and the last timestamp.
func (t *Ticker) Frames() (uint64, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames, t.last
}

// RunInterval calls step at the given nominal frame rate until ctx is done.
// It is the frame driver for surfaces without a vsync callback.
func RunInterval(ctx context.Context, hz float64, clock Clock, step func(now time.Time)) {
	if hz <= 0 {
		return
	}
	if clock == nil {
		clock = SystemClock
	}
	period := time.Duration(float64(time.Second) / hz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			step(clock.Now())
		}
	}
}
