package queue

import "sync"

// Shared is a handle to a receiving end that is shared by several consumers.
// All handles cloned from the same Shared use one mutex, so at most one
// consumer is inside Recv at a time.
type Shared[T any] struct {
	mu *sync.Mutex
	rx *Receiver[T]
}

// NewShared takes ownership of rx and returns the first shared handle.
func NewShared[T any](rx *Receiver[T]) *Shared[T] {
	return &Shared[T]{mu: &sync.Mutex{}, rx: rx}
}

// Clone returns another handle guarded by the same mutex.
func (s *Shared[T]) Clone() *Shared[T] {
	return &Shared[T]{mu: s.mu, rx: s.rx.Clone()}
}

// Recv holds the shared mutex for the duration of one blocking dequeue and
// releases it before returning.
func (s *Shared[T]) Recv() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.Recv()
}

// Close drops this handle's reference to the receiving side. It does not take
// the shared mutex, so a consumer blocked in Recv does not delay it.
func (s *Shared[T]) Close() {
	s.rx.Close()
}

// Len returns the number of queued items.
func (s *Shared[T]) Len() int {
	return s.rx.Len()
}
