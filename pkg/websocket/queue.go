package websocket

import (
	"context"
	"sync"

	"aggregator/pkg/exception"
)

// Queue is a bounded FIFO between one producer and any number of consumers.
// When full, Push follows the configured OverflowPolicy.
type Queue[T any] struct {
	ch        chan T
	policy    OverflowPolicy
	onDrop    func(T)
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue holding up to capacity items. onDrop, when set, is
// called for every item discarded by a drop policy.
func NewQueue[T any](capacity int, policy OverflowPolicy, onDrop func(T)) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{
		ch:     make(chan T, capacity),
		policy: policy,
		onDrop: onDrop,
		done:   make(chan struct{}),
	}
}

// Push enqueues v and reports whether it was accepted. Under OverflowBlock it
// waits for room and returns ctx.Err() if ctx ends first.
func (q *Queue[T]) Push(ctx context.Context, v T) (bool, error) {
	select {
	case <-q.done:
		return false, exception.ErrQueueClosed
	default:
	}

	switch q.policy {
	case OverflowBlock:
		select {
		case q.ch <- v:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		case <-q.done:
			return false, exception.ErrQueueClosed
		}
	case OverflowDropOldest:
		for {
			select {
			case q.ch <- v:
				return true, nil
			default:
				select {
				case old := <-q.ch:
					q.drop(old)
				default:
				}
			}
		}
	default:
		select {
		case q.ch <- v:
			return true, nil
		default:
			q.drop(v)
			return false, nil
		}
	}
}

// Pop waits for the next item. Items pushed before Close are still delivered;
// after that Pop returns ErrQueueClosed.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-q.ch:
		return v, nil
	default:
	}
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.done:
		select {
		case v := <-q.ch:
			return v, nil
		default:
			return zero, exception.ErrQueueClosed
		}
	}
}

// Close stops accepting items. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

func (q *Queue[T]) drop(v T) {
	if q.onDrop != nil {
		q.onDrop(v)
	}
}
