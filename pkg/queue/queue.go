package queue

// Queue represents a basic bounded queue.
type Queue interface {
	// Enqueue adds an item to the end of the queue. It returns false when
	// the queue is full and the item was dropped.
	Enqueue(item interface{}) bool
	// Dequeue removes and returns the item from the front of the queue,
	// blocking until one is available or the queue is closed. The second
	// return value is false once the queue is closed and drained.
	Dequeue() (interface{}, bool)
	// Size returns the current size of the queue.
	Size() int
	// Close stops the queue. Pending items can still be dequeued.
	Close()
}
