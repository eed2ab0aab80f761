package realtime

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisHub is a Hub backed by Redis pub/sub and lists, so notifications
// reach players served by other processes.
type RedisHub struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisHub wraps an existing client. Close leaves the client open.
func NewRedisHub(client *redis.Client, keyPrefix string) *RedisHub {
	if keyPrefix == "" {
		keyPrefix = "tycoon:rt"
	}
	return &RedisHub{client: client, keyPrefix: keyPrefix}
}

func (h *RedisHub) channel(topic string) string {
	return h.keyPrefix + ":topic:" + topic
}

func (h *RedisHub) feedKey(feed string) string {
	return h.keyPrefix + ":feed:" + feed
}

// Publish sends data on the Redis channel of topic.
func (h *RedisHub) Publish(ctx context.Context, topic string, data []byte) error {
	if err := h.client.Publish(ctx, h.channel(topic), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe listens on the Redis channel of topic. The subscription is
// confirmed before Subscribe returns, so later publishes are not missed.
func (h *RedisHub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps := h.client.Subscribe(ctx, h.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := newSubscription(subscriptionBuffer, func() { ps.Close() })
	go func() {
		defer close(sub.ch)
		for msg := range ps.Channel() {
			if !sub.offer([]byte(msg.Payload)) {
				log.Printf("[RedisHub] Dropped message on %s: subscriber too slow", topic)
			}
		}
	}()
	return sub, nil
}

// PushFeed prepends data to the feed list and trims it to max entries.
func (h *RedisHub) PushFeed(ctx context.Context, feed string, data []byte, max int) error {
	key := h.feedKey(feed)
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	if max > 0 {
		pipe.LTrim(ctx, key, 0, int64(max-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push feed %s: %w", feed, err)
	}
	return nil
}

// RecentFeed returns up to n feed entries, newest first.
func (h *RedisHub) RecentFeed(ctx context.Context, feed string, n int) ([][]byte, error) {
	if n <= 0 {
		return [][]byte{}, nil
	}
	vals, err := h.client.LRange(ctx, h.feedKey(feed), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", feed, err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// Close is a no-op; subscriptions close individually and the client is shared.
func (h *RedisHub) Close() error {
	return nil
}

var (
	_ Hub = (*MemoryHub)(nil)
	_ Hub = (*RedisHub)(nil)
)
