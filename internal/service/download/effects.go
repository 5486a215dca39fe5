package download

import (
	"context"
	"sync"
)

// effectQueue runs side effects of scheduler snapshots on its own goroutine, in the order they were pushed,
// so that database and history writes never hold up snapshot delivery.
type effectQueue struct {
	mu      sync.Mutex
	pending []func()
	// queued and done count pushed and finished effects.
	queued uint64
	done   uint64
	// advanced is closed and replaced every time done grows.
	advanced chan struct{}
	wake     chan struct{}
	stopped  chan struct{}
	closed   bool
}

func newEffectQueue() *effectQueue {
	q := &effectQueue{
		advanced: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stopped:  make(chan struct{}),
	}

	go q.run()

	return q
}

// push schedules effect. After close it runs effect in the caller's goroutine.
func (q *effectQueue) push(effect func()) {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		effect()

		return
	}

	q.pending = append(q.pending, effect)
	q.queued++

	select {
	case q.wake <- struct{}{}:
	default:
	}

	q.mu.Unlock()
}

// flush waits until every effect pushed before the call has finished.
func (q *effectQueue) flush(ctx context.Context) error {
	q.mu.Lock()
	target := q.queued
	q.mu.Unlock()

	for {
		q.mu.Lock()
		if q.done >= target {
			q.mu.Unlock()

			return nil
		}

		advanced := q.advanced
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-advanced:
		}
	}
}

// close runs the remaining effects and stops the worker.
func (q *effectQueue) close() {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		<-q.stopped

		return
	}

	q.closed = true
	close(q.wake)
	q.mu.Unlock()

	<-q.stopped
}

func (q *effectQueue) run() {
	defer close(q.stopped)

	for range q.wake {
		q.drain()
	}

	q.drain()
}

func (q *effectQueue) drain() {
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return
		}

		for _, effect := range batch {
			effect()
		}

		q.mu.Lock()
		q.done += uint64(len(batch))
		close(q.advanced)
		q.advanced = make(chan struct{})
		q.mu.Unlock()
	}
}
