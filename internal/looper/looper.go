// Package looper provides the single control goroutine every binding operation runs on.  Work posted from any
// goroutine is queued and executed in order by whoever drains the loop: Run for headless hosts, or the UI event
// loop through Ready and Drain.
package looper

import (
	"context"
	"sync"

	"github.com/PizzaHomicide/reel/internal/log"
)

// Loop is an unbounded FIFO of work items
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	ready  chan struct{}
	done   chan struct{}
}

func New() *Loop {
	return &Loop{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Post queues fn.  It never blocks and returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready is signalled when work may be pending.  A receive can be spurious: Drain simply finds nothing to do.
func (l *Loop) Ready() <-chan struct{} {
	return l.ready
}

// Done is closed by Close
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Drain runs queued work, including work posted while draining, until the queue is empty.  It returns the number
// of items run.  Drain must only be called from the control goroutine.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			l.run(fn)
			n++
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered panic in posted work", "panic", r)
		}
	}()
	fn()
}

// Run drains the loop on the calling goroutine until ctx is cancelled or the loop is closed
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			l.Drain()
			return nil
		case <-l.ready:
			l.Drain()
		}
	}
}

// Close stops accepting work.  Work already queued can still be drained.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
}

// Pending returns the number of queued items
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
