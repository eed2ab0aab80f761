package realtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, sub *Subscription) string {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		if !ok {
			t.Fatalf("subscription closed")
		}
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
	}
	return ""
}

func exerciseHub(t *testing.T, h Hub) {
	t.Helper()
	ctx := context.Background()

	bob, err := h.Subscribe(ctx, "invites:bob")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	carol, err := h.Subscribe(ctx, "invites:carol")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer carol.Close()

	if err := h.Publish(ctx, "invites:bob", []byte("duel")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := receive(t, bob); got != "duel" {
		t.Fatalf("expected duel, got %q", got)
	}
	select {
	case msg := <-carol.C():
		t.Fatalf("carol received bob's message %q", msg)
	case <-time.After(20 * time.Millisecond):
	}

	bob.Close()
	bob.Close()
	select {
	case _, ok := <-bob.C():
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after Close")
	}

	for i := 0; i < 25; i++ {
		if err := h.PushFeed(ctx, "events", []byte(fmt.Sprintf("e%d", i)), DefaultFeedSize); err != nil {
			t.Fatalf("PushFeed: %v", err)
		}
	}
	all, err := h.RecentFeed(ctx, "events", 100)
	if err != nil {
		t.Fatalf("RecentFeed: %v", err)
	}
	if len(all) != DefaultFeedSize || string(all[0]) != "e24" || string(all[19]) != "e5" {
		t.Fatalf("feed not capped newest-first: len=%d first=%s", len(all), all[0])
	}
	few, _ := h.RecentFeed(ctx, "events", 3)
	if len(few) != 3 || string(few[2]) != "e22" {
		t.Fatalf("unexpected partial feed %q", few)
	}
}

func TestMemoryHub(t *testing.T) {
	h := NewMemoryHub()
	exerciseHub(t, h)

	sub, _ := h.Subscribe(context.Background(), "x")
	h.Close()
	if _, ok := <-sub.C(); ok {
		t.Fatalf("Close should end subscriptions")
	}
	sub.Close()
	if err := h.Publish(context.Background(), "x", nil); err != ErrHubClosed {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
}

func TestRedisHub(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseHub(t, NewRedisHub(client, "test"))
}
