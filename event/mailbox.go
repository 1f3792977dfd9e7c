package event

import "sync"

// Mailbox is an unbounded FIFO queue with a single consumer. Put never blocks,
// so it can be fed from a Listener without stalling the publisher.
type Mailbox[E any] struct {
	mu     sync.Mutex
	queue  []E
	closed bool
	signal chan struct{}
	out    chan E
	done   chan struct{}

	discardOnce sync.Once
}

// NewMailbox creates a Mailbox and starts its delivery goroutine.
func NewMailbox[E any]() *Mailbox[E] {
	m := &Mailbox[E]{
		signal: make(chan struct{}, 1),
		out:    make(chan E),
		done:   make(chan struct{}),
	}
	go m.pump()
	return m
}

// Put enqueues e. It reports false if the mailbox is closed.
func (m *Mailbox[E]) Put(e E) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, e)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// Out returns the delivery channel. It is closed after Close once the queue
// has drained, or immediately after Discard.
func (m *Mailbox[E]) Out() <-chan E {
	return m.out
}

// Close stops accepting new items. Items already queued are still delivered.
func (m *Mailbox[E]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Discard closes the mailbox and drops anything not yet delivered.
func (m *Mailbox[E]) Discard() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()

	m.discardOnce.Do(func() { close(m.done) })
}

func (m *Mailbox[E]) pump() {
	defer close(m.out)

	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			closed := m.closed
			m.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-m.signal:
				continue
			case <-m.done:
				return
			}
		}
		next := m.queue[0]
		var zero E
		m.queue[0] = zero
		m.queue = m.queue[1:]
		m.mu.Unlock()

		select {
		case m.out <- next:
		case <-m.done:
			return
		}
	}
}
