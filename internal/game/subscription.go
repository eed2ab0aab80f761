package game

import "sync"

// Subscription delivers published values in order without dropping any.
// Values queue up while the reader is slow; the queue is unbounded.
type Subscription[T any] struct {
	ch     chan T
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
	done   chan struct{}
	unsub  func()
	once   sync.Once
}

func newSubscription[T any](unsub func()) *Subscription[T] {
	s := &Subscription[T]{
		ch:    make(chan T),
		done:  make(chan struct{}),
		unsub: unsub,
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

// C returns the delivery channel. It is closed after Close.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close stops delivery and drops any undelivered values.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		if s.unsub != nil {
			s.unsub()
		}
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		s.cond.Signal()
		close(s.done)
	})
}

// push enqueues v. It never blocks on the reader.
func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	if !s.closed {
		s.queue = append(s.queue, v)
	}
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *Subscription[T]) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		v := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- v:
		case <-s.done:
			return
		}
	}
}

// hub fans values out to subscriptions in publish order.
type hub[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]*Subscription[T]
}

// subscribe registers a subscription. initial, when set, is evaluated under
// the hub lock so no publish can slip between it and registration.
func (h *hub[T]) subscribe(initial func() []T) *Subscription[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]*Subscription[T])
	}
	id := h.next
	h.next++
	sub := newSubscription[T](func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	})
	if initial != nil {
		for _, v := range initial() {
			sub.push(v)
		}
	}
	h.subs[id] = sub
	return sub
}

// publish runs apply, if any, and fans v out while holding the hub lock.
func (h *hub[T]) publish(v T, apply func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if apply != nil {
		apply()
	}
	for _, sub := range h.subs {
		sub.push(v)
	}
}

func (h *hub[T]) closeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}
