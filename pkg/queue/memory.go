package queue

import "sync"

// InMemoryQueue implements a bounded in-memory queue backed by a channel.
// Enqueue never blocks: when the buffer is full the item is dropped, which
// is the right behavior for best-effort broadcast outboxes.
type InMemoryQueue struct {
	ch        chan interface{}
	closeOnce sync.Once
	closed    chan struct{}
}

// NewInMemoryQueue creates a new queue with the given buffer size.
func NewInMemoryQueue(size int) *InMemoryQueue {
	return &InMemoryQueue{
		ch:     make(chan interface{}, size),
		closed: make(chan struct{}),
	}
}

func (q *InMemoryQueue) Enqueue(item interface{}) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.ch <- item:
		return true
	default:
		return false
	}
}

func (q *InMemoryQueue) Dequeue() (interface{}, bool) {
	select {
	case item := <-q.ch:
		return item, true
	case <-q.closed:
		// drain whatever was enqueued before the close
		select {
		case item := <-q.ch:
			return item, true
		default:
			return nil, false
		}
	}
}

func (q *InMemoryQueue) Size() int {
	return len(q.ch)
}

func (q *InMemoryQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}
