package realtime

import (
	"context"
	"errors"
	"log"
	"sync"
)

const subscriptionBuffer = 64

// ErrHubClosed is returned by a closed hub.
var ErrHubClosed = errors.New("realtime hub closed")

// MemoryHub is a single-process Hub.
type MemoryHub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	feeds  map[string][][]byte
	closed bool
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs:  make(map[string]map[*Subscription]struct{}),
		feeds: make(map[string][][]byte),
	}
}

// Publish delivers data to every subscriber of topic.
func (h *MemoryHub) Publish(ctx context.Context, topic string, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	for sub := range h.subs[topic] {
		if !sub.offer(append([]byte(nil), data...)) {
			log.Printf("[RealtimeHub] Dropped message on %s: subscriber too slow", topic)
		}
	}
	return nil
}

// Subscribe registers a subscriber on topic.
func (h *MemoryHub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	var sub *Subscription
	sub = newSubscription(subscriptionBuffer, func() { h.unsubscribe(topic, sub) })
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	return sub, nil
}

func (h *MemoryHub) unsubscribe(topic string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[topic][sub]; !ok {
		return
	}
	delete(h.subs[topic], sub)
	if len(h.subs[topic]) == 0 {
		delete(h.subs, topic)
	}
	close(sub.ch)
}

// PushFeed prepends data to feed, keeping at most max entries.
func (h *MemoryHub) PushFeed(ctx context.Context, feed string, data []byte, max int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	entries := append([][]byte{append([]byte(nil), data...)}, h.feeds[feed]...)
	if max > 0 && len(entries) > max {
		entries = entries[:max]
	}
	h.feeds[feed] = entries
	return nil
}

// RecentFeed returns up to n entries of feed, newest first.
func (h *MemoryHub) RecentFeed(ctx context.Context, feed string, n int) ([][]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.feeds[feed]
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = append([]byte(nil), e...)
	}
	return out, nil
}

// Close ends every subscription.
func (h *MemoryHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for topic, subs := range h.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.subs, topic)
	}
	return nil
}
