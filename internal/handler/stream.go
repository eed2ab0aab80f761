package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/persistence"
	"tycoon-engine/internal/realtime"
	"tycoon-engine/internal/service"
)

// Stream message types.
const (
	StreamState    = "state"
	StreamDayEnded = "day_ended"
	StreamInvite   = "invite"
	StreamEvent    = "event"
)

const (
	streamWriteWait = 5 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = streamPongWait * 9 / 10
)

// StreamMessage is one websocket frame.
type StreamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StreamHandler pushes game snapshots, day-end reports, invitations and
// public events to a websocket client.
type StreamHandler struct {
	store    *game.Store
	social   *service.SocialService
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a stream handler. social may be nil, in which
// case only game messages are sent.
func NewStreamHandler(store *game.Store, social *service.SocialService, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		store:  store,
		social: social,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

func subscriptionChan(s *realtime.Subscription) <-chan []byte {
	if s == nil {
		return nil
	}
	return s.C()
}

// Serve handles GET /stream
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := h.store.Subscribe()
	defer snapshots.Close()
	dayEnded := h.store.SubscribeDayEnded()
	defer dayEnded.Close()

	var invites, events *realtime.Subscription
	if h.social != nil {
		invites, err = h.social.SubscribeInvites(ctx)
		if err != nil && !errors.Is(err, persistence.ErrNoUser) {
			log.Printf("[Stream] Invite subscription failed: %v", err)
		}
		if invites != nil {
			defer invites.Close()
		}
		events, err = h.social.SubscribeEvents(ctx)
		if err != nil {
			log.Printf("[Stream] Event subscription failed: %v", err)
		}
		if events != nil {
			defer events.Close()
		}
	}

	// Reader loop: only control frames are expected. It ends the stream when
	// the client goes away.
	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	for {
		var msg StreamMessage
		select {
		case <-ctx.Done():
			return
		case st, ok := <-snapshots.C():
			if !ok {
				return
			}
			msg = StreamMessage{Type: StreamState, Data: st}
		case report, ok := <-dayEnded.C():
			if !ok {
				return
			}
			msg = StreamMessage{Type: StreamDayEnded, Data: report}
		case data, ok := <-subscriptionChan(invites):
			if !ok {
				invites = nil
				continue
			}
			msg = StreamMessage{Type: StreamInvite, Data: json.RawMessage(data)}
		case data, ok := <-subscriptionChan(events):
			if !ok {
				events = nil
				continue
			}
			msg = StreamMessage{Type: StreamEvent, Data: json.RawMessage(data)}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
