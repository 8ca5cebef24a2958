package router

import (
	"log"
	"sync"
	"time"

	"chat-sync/internal/api"
	"chat-sync/internal/models"
	"chat-sync/internal/notify"
	"chat-sync/internal/observability"
	"chat-sync/internal/store"
	"chat-sync/internal/ws"
)

// typingTTL bounds how long a typing indicator stays visible without a
// follow-up event.
const typingTTL = 5 * time.Second

// Router is the single consumer both delivery paths feed into: push events
// and fallback snapshots are normalized into the same idempotent store
// mutations, so the store converges to one state no matter which path
// delivered a message first.
type Router struct {
	store  *store.Store
	center *notify.Center
	client api.Client

	mu     sync.RWMutex
	typing map[string]typingState // chatID -> latest indicator
}

type typingState struct {
	userID   string
	isTyping bool
	at       time.Time
}

// New builds a Router writing into the given store.
func New(st *store.Store, center *notify.Center, client api.Client) *Router {
	return &Router{
		store:  st,
		center: center,
		client: client,
		typing: make(map[string]typingState),
	}
}

// Attach subscribes the router to the push channel. After a reconnect the
// router immediately runs a catch-up fetch, since events may have been
// missed during the outage.
func (r *Router) Attach(manager *ws.Manager) {
	manager.OnMessage(r.HandleNewMessage)
	manager.OnReadReceipt(r.HandleReadReceipt)
	manager.OnNotification(func(n models.Notification) {
		r.center.Push(n)
	})
	manager.OnTyping(r.handleTyping)
	manager.OnReconnected(func() {
		go r.Refresh()
	})
}

// HandleNewMessage applies a pushed chat update. The payload carries the
// server's authoritative chat, which is merged by message identifier: a
// message that already arrived through the fallback fetch (or an optimistic
// confirmation) is applied at most once. Inbound messages for a chat that is
// not currently open produce a notification; the unread count follows from
// the store state, it is never written directly.
func (r *Router) HandleNewMessage(p models.NewMessagePayload) {
	if p.Chat.ID == "" || p.Chat.ID != p.ChatID {
		log.Printf("router: dropping malformed newMessage event chatId=%q", p.ChatID)
		return
	}

	known := make(map[string]struct{})
	if existing, err := r.store.GetChat(p.ChatID); err == nil {
		for _, m := range existing.Messages {
			known[m.ID] = struct{}{}
		}
	}

	var fresh []models.Message
	for _, m := range p.Chat.Messages {
		if _, ok := known[m.ID]; ok {
			continue
		}
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 && len(p.Chat.Messages) > 0 {
		observability.IncDedupDrop()
	}

	r.store.MergeChat(p.Chat)

	if r.store.ActiveChat() == p.ChatID {
		return
	}
	currentUser := r.store.CurrentUserID()
	for _, m := range fresh {
		if m.Sender.ID == currentUser || m.Read {
			continue
		}
		r.center.Push(models.Notification{
			Type:    "message",
			ChatID:  p.ChatID,
			Sender:  m.Sender.Name,
			Content: m.Content,
		})
	}
}

// HandleReadReceipt marks the matching message read in place. Receipts never
// produce notifications.
func (r *Router) HandleReadReceipt(p models.ReadReceiptPayload) {
	r.store.MarkMessageRead(p.ChatID, p.MessageID)
}

func (r *Router) handleTyping(p models.TypingPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing[p.ChatID] = typingState{userID: p.UserID, isTyping: p.IsTyping, at: time.Now()}
}

// TypingUser returns who is typing in a chat, if the indicator is fresh.
func (r *Router) TypingUser(chatID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.typing[chatID]
	if !ok || !st.isTyping || time.Since(st.at) > typingTTL {
		return "", false
	}
	return st.userID, true
}
