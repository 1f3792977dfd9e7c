// Package event provides the small publish/subscribe primitives shared by the
// discovery coordinator, the stores and the terminal view.
package event

import "sync"

// Listener receives published events.
type Listener[E any] func(E)

type subscription[E any] struct {
	id       uint64
	listener Listener[E]
}

// Topic is an ordered list of listeners. Publish calls every listener
// synchronously, in subscription order, exactly once per event.
type Topic[E any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[E]
}

// Subscribe registers l and returns a function that removes it. The returned
// function is safe to call more than once.
func (t *Topic[E]) Subscribe(l Listener[E]) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription[E]{id: id, listener: l})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, s := range t.subs {
				if s.id == id {
					t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every current listener. Listeners must not block.
func (t *Topic[E]) Publish(e E) {
	t.mu.RLock()
	subs := t.subs
	t.mu.RUnlock()

	for _, s := range subs {
		s.listener(e)
	}
}
