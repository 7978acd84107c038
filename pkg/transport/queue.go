package transport

import "sync"

// DefaultQueueSize is the default inbound queue capacity in messages.
const DefaultQueueSize = 256

// queue is a bounded FIFO of messages that drops the oldest entry on
// overflow.
type queue struct {
	mu      sync.Mutex
	items   [][]uint32
	cap     int
	dropped uint64
}

func newQueue(capacity int) *queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &queue{cap: capacity}
}

// push stores a copy of words.
func (q *queue) push(words []uint32) {
	msg := append([]uint32(nil), words...)

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.cap {
		q.items[0] = nil
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, msg)
}

// drain removes and returns every buffered message.
func (q *queue) drain() [][]uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	if out == nil {
		return [][]uint32{}
	}
	return out
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
