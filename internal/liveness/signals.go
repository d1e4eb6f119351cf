package liveness

import "sync"

// Signals is an in-process SignalSource. Hosts translate their own focus
// and input events into Emit calls.
type Signals struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Signal)
}

// NewSignals creates an empty source.
func NewSignals() *Signals {
	return &Signals{subs: make(map[int]func(Signal))}
}

// Subscribe registers fn for every emitted signal.
func (s *Signals) Subscribe(fn func(Signal)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Emit delivers sig synchronously to every subscriber.
func (s *Signals) Emit(sig Signal) {
	s.mu.Lock()
	subs := make([]func(Signal), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(sig)
	}
}
