// Package reactor provides a single-goroutine event loop.
//
// Every callback posted to a Reactor, and every periodic timer it owns, runs
// on the loop goroutine one at a time. Work that blocks (network requests)
// runs elsewhere and posts its completion back with Post, so state owned by
// loop callbacks never needs a lock.
package reactor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Run after the reactor has been stopped.
var ErrClosed = errors.New("reactor: closed")

// DefaultQueueSize bounds the number of pending callbacks.
const DefaultQueueSize = 1024

// Reactor serializes callbacks onto one goroutine.
type Reactor struct {
	queue chan func()

	mu     sync.Mutex
	timers map[uint64]*Timer
	nextID uint64

	closed  atomic.Bool
	done    chan struct{}
	dropped atomic.Uint64
}

// New creates a Reactor with the given queue size (0 selects the default).
func New(queueSize int) *Reactor {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Reactor{
		queue:  make(chan func(), queueSize),
		timers: make(map[uint64]*Timer),
		done:   make(chan struct{}),
	}
}

// Post schedules fn to run on the loop. It never blocks; when the queue is
// full the callback is dropped and false is returned.
func (r *Reactor) Post(fn func()) bool {
	if fn == nil || r.closed.Load() {
		return false
	}
	select {
	case r.queue <- fn:
		return true
	default:
		if n := r.dropped.Add(1); n%100 == 1 {
			slog.Warn("reactor queue full, dropping callback", "dropped", n)
		}
		return false
	}
}

// Dropped returns how many callbacks were discarded because the queue was full.
func (r *Reactor) Dropped() uint64 {
	return r.dropped.Load()
}

// Run executes posted callbacks until ctx is cancelled or Close is called.
func (r *Reactor) Run(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return ctx.Err()
		case <-r.done:
			return nil
		case fn := <-r.queue:
			r.invoke(fn)
		}
	}
}

// RunPending runs every callback currently queued on the calling goroutine and
// returns how many ran. Callbacks posted while draining are run too.
func (r *Reactor) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-r.queue:
			r.invoke(fn)
			n++
		default:
			return n
		}
	}
}

func (r *Reactor) invoke(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("reactor callback panicked", "panic", v)
		}
	}()
	fn()
}

// Close stops every timer and makes Run return. Safe to call more than once.
func (r *Reactor) Close() {
	if r.closed.Swap(true) {
		return
	}
	r.mu.Lock()
	timers := make([]*Timer, 0, len(r.timers))
	for _, t := range r.timers {
		timers = append(timers, t)
	}
	r.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
	close(r.done)
}

// Timer is a periodic callback registered with Every.
type Timer struct {
	id      uint64
	reactor *Reactor
	stop    chan struct{}
	once    sync.Once
	active  atomic.Bool
}

// Every posts fn onto the loop once per period until the timer is stopped.
// Ticks that find the queue full are skipped rather than queued up.
func (r *Reactor) Every(period time.Duration, fn func()) *Timer {
	r.mu.Lock()
	r.nextID++
	t := &Timer{
		id:      r.nextID,
		reactor: r,
		stop:    make(chan struct{}),
	}
	r.timers[t.id] = t
	r.mu.Unlock()

	t.active.Store(true)
	go t.run(period, fn)
	return t
}

func (t *Timer) run(period time.Duration, fn func()) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.reactor.Post(func() {
				// A tick queued before Stop must not fire after it.
				if t.active.Load() {
					fn()
				}
			})
		}
	}
}

// Active reports whether the timer is still registered.
func (t *Timer) Active() bool {
	return t.active.Load()
}

// Stop unregisters the timer. Safe to call more than once.
func (t *Timer) Stop() {
	t.once.Do(func() {
		t.active.Store(false)
		close(t.stop)
		t.reactor.mu.Lock()
		delete(t.reactor.timers, t.id)
		t.reactor.mu.Unlock()
	})
}
