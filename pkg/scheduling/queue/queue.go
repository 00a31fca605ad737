package queue

import (
	"sync"

	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
)

// state is the storage and reference counts behind a Sender/Receiver pair.
type state[T any] struct {
	mu        sync.Mutex
	ready     *sync.Cond
	items     []T
	senders   int
	receivers int
}

// Sender is one handle to the sending side of a queue. It is safe for
// concurrent use.
type Sender[T any] struct {
	q      *state[T]
	mu     sync.Mutex
	closed bool
}

// Receiver is one handle to the receiving side of a queue.
type Receiver[T any] struct {
	q      *state[T]
	mu     sync.Mutex
	closed bool
}

// New creates an empty unbounded queue and returns its first sending and
// receiving handles.
func New[T any]() (*Sender[T], *Receiver[T]) {
	q := &state[T]{senders: 1, receivers: 1}
	q.ready = sync.NewCond(&q.mu)
	return &Sender[T]{q: q}, &Receiver[T]{q: q}
}

// Clone returns a new independent handle to the same queue. Cloning a closed
// handle returns a closed handle.
func (s *Sender[T]) Clone() *Sender[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &Sender[T]{q: s.q, closed: true}
	}

	s.q.mu.Lock()
	s.q.senders++
	s.q.mu.Unlock()

	return &Sender[T]{q: s.q}
}

// Send appends v at the tail of the queue. It never blocks on queue depth.
func (s *Sender[T]) Send(v T) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return gferrors.ErrClosed
	}

	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.receivers == 0 {
		return gferrors.ErrQueueClosed
	}

	q.items = append(q.items, v)
	q.ready.Signal()
	return nil
}

// Close drops this handle. When the last sending handle is dropped, blocked
// receivers wake and observe the disconnect once the queue drains.
func (s *Sender[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	q := s.q
	q.mu.Lock()
	q.senders--
	if q.senders == 0 {
		q.ready.Broadcast()
	}
	q.mu.Unlock()
}

// Len returns the number of queued items.
func (s *Sender[T]) Len() int {
	return s.q.len()
}

// Recv removes and returns the head item, blocking until one is available.
// Queued items are still returned after every sender has been closed; once the
// queue is empty Recv returns errors.ErrDisconnected.
func (r *Receiver[T]) Recv() (T, error) {
	var zero T

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return zero, gferrors.ErrClosed
	}

	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.senders == 0 {
			return zero, gferrors.ErrDisconnected
		}
		q.ready.Wait()
	}

	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v, nil
}

// Clone returns another handle to the receiving side.
func (r *Receiver[T]) Clone() *Receiver[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return &Receiver[T]{q: r.q, closed: true}
	}

	r.q.mu.Lock()
	r.q.receivers++
	r.q.mu.Unlock()

	return &Receiver[T]{q: r.q}
}

// Close drops this handle. When the last receiving handle is dropped, queued
// items are discarded and further sends fail with errors.ErrQueueClosed.
func (r *Receiver[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true

	q := r.q
	q.mu.Lock()
	q.receivers--
	if q.receivers == 0 {
		q.items = nil
	}
	q.mu.Unlock()
}

// Len returns the number of queued items.
func (r *Receiver[T]) Len() int {
	return r.q.len()
}

func (q *state[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
