package optimistic

import "sync"

// subscribers fans state snapshots out to registered listeners.
//
// Deliveries are serialized and each one reads the snapshot at delivery time,
// so whatever order concurrent changes notify in, the last delivery always
// carries the latest state.
type subscribers[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber[T]

	deliverMu sync.Mutex
}

type subscriber[T any] struct {
	id uint64
	fn func(State[T])
}

func (s *subscribers[T]) add(fn func(State[T])) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *subscribers[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify delivers snapshot() to every subscriber.
func (s *subscribers[T]) notify(snapshot func() State[T]) {
	// Copy subscribers while holding lock
	s.mu.RLock()
	if len(s.subs) == 0 {
		s.mu.RUnlock()
		return
	}
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	state := snapshot()
	for _, sub := range subs {
		sub.fn(state)
	}
}
