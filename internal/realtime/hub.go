// Package realtime delivers cross-player notifications: directed messages
// such as duel invitations, and the capped public event ticker.
package realtime

import (
	"context"
	"sync"
)

// DefaultFeedSize is how many public events the ticker keeps.
const DefaultFeedSize = 20

// Hub publishes messages to topics and keeps capped feeds.
type Hub interface {
	// Publish delivers data to the current subscribers of topic.
	Publish(ctx context.Context, topic string, data []byte) error

	// Subscribe streams the messages published to topic from now on.
	Subscribe(ctx context.Context, topic string) (*Subscription, error)

	// PushFeed prepends data to feed and trims it to max entries.
	PushFeed(ctx context.Context, feed string, data []byte, max int) error

	// RecentFeed returns up to n feed entries, newest first.
	RecentFeed(ctx context.Context, feed string, n int) ([][]byte, error)

	Close() error
}

// Subscription is a live topic stream. Slow readers lose messages rather
// than stall publishers.
type Subscription struct {
	ch        chan []byte
	closeOnce sync.Once
	onClose   func()
}

func newSubscription(buffer int, onClose func()) *Subscription {
	return &Subscription{ch: make(chan []byte, buffer), onClose: onClose}
}

// C returns the message channel. It is closed after Close.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// offer delivers without blocking and reports whether the message fit.
func (s *Subscription) offer(data []byte) bool {
	select {
	case s.ch <- data:
		return true
	default:
		return false
	}
}
