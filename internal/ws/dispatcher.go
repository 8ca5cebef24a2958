package ws

import (
	"encoding/json"
	"log"
	"sync"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
)

// dispatcher fans push-channel events out to registered handlers. Handlers
// run synchronously on the read loop so per-chat delivery order is preserved;
// consumers that need concurrency hand off themselves.
type dispatcher struct {
	mu            sync.RWMutex
	onMessage     []func(models.NewMessagePayload)
	onNotify      []func(models.Notification)
	onTyping      []func(models.TypingPayload)
	onReadReceipt []func(models.ReadReceiptPayload)
	onPresence    []func(event string, p models.PresencePayload)
	onState       []func(State)
	onReconnected []func()
}

func newDispatcher() *dispatcher {
	return &dispatcher{}
}

func (d *dispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMessage = nil
	d.onNotify = nil
	d.onTyping = nil
	d.onReadReceipt = nil
	d.onPresence = nil
	d.onState = nil
	d.onReconnected = nil
}

func (d *dispatcher) dispatch(data []byte) {
	var env models.PushEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		observability.IncPushEvent("malformed")
		log.Printf("push channel: dropping malformed frame: %v", err)
		return
	}
	observability.IncPushEvent(env.Type)

	d.mu.RLock()
	defer d.mu.RUnlock()

	switch env.Type {
	case models.EventNewMessage:
		var p models.NewMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ChatID == "" {
			observability.IncPushEvent("malformed")
			return
		}
		for _, h := range d.onMessage {
			h(p)
		}
	case models.EventNotification:
		var n models.Notification
		if err := json.Unmarshal(env.Payload, &n); err != nil {
			observability.IncPushEvent("malformed")
			return
		}
		for _, h := range d.onNotify {
			h(n)
		}
	case models.EventTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			observability.IncPushEvent("malformed")
			return
		}
		for _, h := range d.onTyping {
			h(p)
		}
	case models.EventMessageRead:
		var p models.ReadReceiptPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.MessageID == "" {
			observability.IncPushEvent("malformed")
			return
		}
		for _, h := range d.onReadReceipt {
			h(p)
		}
	case models.EventUserOnline, models.EventUserOffline:
		var p models.PresencePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.UserID == "" {
			observability.IncPushEvent("malformed")
			return
		}
		for _, h := range d.onPresence {
			h(env.Type, p)
		}
	default:
		log.Printf("push channel: ignoring unknown event type %q", env.Type)
	}
}

func (d *dispatcher) emitState(s State) {
	d.mu.RLock()
	handlers := append([]func(State){}, d.onState...)
	d.mu.RUnlock()
	for _, h := range handlers {
		h(s)
	}
}

func (d *dispatcher) emitReconnected() {
	d.mu.RLock()
	handlers := append([]func(){}, d.onReconnected...)
	d.mu.RUnlock()
	for _, h := range handlers {
		h()
	}
}
