package broker

import "sync"

// compactThreshold is the minimum number of consumed slots before the queue
// reclaims the consumed prefix of its backing array.
const compactThreshold = 64

// MessageQueue is a mutex protected FIFO of point-to-point messages.
// A maxDepth of zero means the queue is unbounded.
type MessageQueue struct {
	mu       sync.Mutex
	items    []Message
	head     int
	maxDepth int
}

// NewMessageQueue creates an empty queue holding at most maxDepth messages.
func NewMessageQueue(maxDepth int) *MessageQueue {
	return &MessageQueue{maxDepth: maxDepth}
}

// Enqueue appends msg to the tail. It returns ErrQueueFull when the queue
// already holds maxDepth messages; the new message is rejected and the queue
// is left unchanged.
func (q *MessageQueue) Enqueue(msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxDepth > 0 && len(q.items)-q.head >= q.maxDepth {
		return ErrQueueFull
	}

	q.items = append(q.items, msg)
	return nil
}

// Dequeue removes and returns the head of the queue. The boolean is false
// when the queue is empty; an empty queue is not an error.
func (q *MessageQueue) Dequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return Message{}, false
	}

	msg := q.items[q.head]
	q.items[q.head] = Message{}
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return msg, true
}

// Len returns the number of messages waiting in the queue.
func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
