package core

import (
	"context"
	"sync"

	"pkt.systems/dropterm/schema"
)

// Loop is the single logical UI thread. Closures posted to it run in FIFO
// order, one at a time. All controller state is only touched from the loop.
type Loop interface {
	Post(fn func())
}

// SerialLoop is a Loop drained by the goroutine that calls Run.
type SerialLoop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

// NewSerialLoop constructs an idle loop. Call Run to drain it.
func NewSerialLoop() *SerialLoop {
	return &SerialLoop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post schedules fn on the loop. Posts after the loop stopped are dropped.
func (l *SerialLoop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the loop until ctx is done. Pending closures are discarded on
// exit.
func (l *SerialLoop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain runs every queued closure, including closures they post, on the
// calling goroutine. It is meant for tests and single-threaded hosts.
func (l *SerialLoop) Drain() int {
	n := 0
	for {
		fn, ok := l.next()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// Do runs fn on the loop and waits for it to return. It must not be called
// from the loop itself.
func (l *SerialLoop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return schema.ErrLoopStopped
	}
	l.mu.Unlock()
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
		}
		return schema.ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run returned.
func (l *SerialLoop) Done() <-chan struct{} {
	return l.done
}

func (l *SerialLoop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *SerialLoop) stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	close(l.done)
}
