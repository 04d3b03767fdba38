package recognition

import "sync"

// frameQueue is a bounded FIFO of frames.
// When it's full, a new frame pushes out the oldest one.
type frameQueue struct {
	mu     sync.Mutex
	items  [][]byte
	size   int
	ready  chan struct{}
	closed bool
}

func newFrameQueue(size int) *frameQueue {
	if size < 1 {
		size = 1
	}
	return &frameQueue{items: make([][]byte, 0, size), size: size, ready: make(chan struct{}, 1)}
}

// Push adds the frame, dropped is true when the oldest frame was discarded,
// ok is false if the queue is closed.
func (q *frameQueue) Push(frame []byte) (dropped bool, ok bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, false
	}
	if len(q.items) == q.size {
		q.items[0] = nil
		q.items = q.items[1:]
		dropped = true
	}
	q.items = append(q.items, frame)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return dropped, true
}

// Pop waits for the next frame until the queue or done is closed.
func (q *frameQueue) Pop(done <-chan struct{}) ([]byte, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		if len(q.items) > 0 {
			frame := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return frame, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-done:
			return nil, false
		}
	}
}

// Close discards the frames and wakes up the waiting reader.
func (q *frameQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
