package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"chat-sync/internal/api"
	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/router"
	"chat-sync/internal/store"
	"chat-sync/internal/telemetry"
	"chat-sync/internal/ws"
)

// ErrEmptyContent rejects sends whose content is empty after trimming.
var ErrEmptyContent = errors.New("empty message content")

// Session coordinates user-initiated writes against the store and the remote
// API for one authenticated user. Mutations are applied optimistically and
// reconciled when the request resolves: on success the server's view of the
// chat supersedes the local one, on failure the tentative mutation is rolled
// back and the store is left exactly as it was.
type Session struct {
	client      api.Client
	store       *store.Store
	manager     *ws.Manager
	router      *router.Router
	audit       *telemetry.AuditEmitter
	currentUser models.Participant

	pollInterval time.Duration
	cancelPoll   context.CancelFunc

	mu           sync.Mutex
	readInflight map[string]*inflightRead
}

// inflightRead lets concurrent markAsRead callers for the same chat join a
// single request instead of doubling it.
type inflightRead struct {
	done chan struct{}
	err  error
}

// New wires a Session. The session owns the poller lifecycle; the manager
// and router are constructed by the caller so tests can substitute them.
func New(client api.Client, st *store.Store, manager *ws.Manager, rt *router.Router,
	audit *telemetry.AuditEmitter, currentUser models.Participant, pollInterval time.Duration) *Session {
	return &Session{
		client:       client,
		store:        st,
		manager:      manager,
		router:       rt,
		audit:        audit,
		currentUser:  currentUser,
		pollInterval: pollInterval,
		readInflight: make(map[string]*inflightRead),
	}
}

// Start connects the push channel and starts the fallback poller. A failed
// initial connect is not fatal: the poller still converges the store, and
// the manager keeps its own reconnect budget.
func (s *Session) Start(ctx context.Context) {
	if err := s.manager.Connect(ctx); err != nil {
		log.Printf("session: push channel unavailable, relying on fallback fetch: %v", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	s.cancelPoll = cancel
	go s.router.Run(pollCtx, s.pollInterval)

	s.audit.Emit(context.Background(), "info", "session started", s.currentUser.ID)
}

// Close cancels the poller and releases the push channel. The store stops
// receiving mutations once Close returns.
func (s *Session) Close() {
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
	s.manager.Disconnect()
	s.audit.Emit(context.Background(), "info", "session closed", s.currentUser.ID)
}

// SendMessage applies a tentative message immediately, issues the request,
// and reconciles on response. On failure the tentative message is removed by
// its own identifier and the error surfaces to the caller; inbound events
// that arrived concurrently are untouched. No automatic retry.
func (s *Session) SendMessage(ctx context.Context, chatID, content string) (models.Chat, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Chat{}, ErrEmptyContent
	}
	if _, err := s.store.GetChat(chatID); err != nil {
		return models.Chat{}, err
	}

	tentative := models.Message{
		ID:        newLocalID(),
		ChatID:    chatID,
		Sender:    s.currentUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(chatID, tentative); err != nil {
		return models.Chat{}, err
	}

	chat, err := s.client.SendMessage(ctx, chatID, content)
	if err != nil {
		s.store.RemoveMessage(chatID, tentative.ID)
		observability.IncSend("rolled_back")
		s.audit.Emit(ctx, "warn", "send rolled back: "+err.Error(), s.currentUser.ID)
		return models.Chat{}, fmt.Errorf("send message: %w", err)
	}

	// The tentative message and its confirmed counterpart must never
	// coexist: drop ours first, then apply the server's chat. Merge keeps
	// other still-unconfirmed sends in place.
	s.store.RemoveMessage(chatID, tentative.ID)
	s.store.MergeChat(chat)
	observability.IncSend("confirmed")
	return chat, nil
}

// MarkAsRead confirms the chat's inbound messages as read with the server
// and applies the returned snapshot. Concurrent calls for the same chat
// coalesce into one request; the unread derivation follows from the store
// mutation, nothing is marked read locally beforehand.
func (s *Session) MarkAsRead(ctx context.Context, chatID string) error {
	s.mu.Lock()
	if f, ok := s.readInflight[chatID]; ok {
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f := &inflightRead{done: make(chan struct{})}
	s.readInflight[chatID] = f
	s.mu.Unlock()

	chat, err := s.client.MarkRead(ctx, chatID)
	if err == nil {
		s.store.MergeChat(chat)
	} else {
		err = fmt.Errorf("mark read: %w", err)
	}

	f.err = err
	close(f.done)
	s.mu.Lock()
	delete(s.readInflight, chatID)
	s.mu.Unlock()
	return err
}

// SetActiveChat records the open chat and, as a side effect, requests read
// confirmation for it. Messages are only marked read once the server
// confirms, so a failed request cannot make the badge undercount.
func (s *Session) SetActiveChat(ctx context.Context, chatID string) error {
	s.store.SetActiveChat(chatID)
	if chatID == "" {
		return nil
	}
	if err := s.MarkAsRead(ctx, chatID); err != nil {
		log.Printf("session: read confirmation failed for chat %s: %v", chatID, err)
		return err
	}
	return nil
}

// CreateOrGetChat asks the server for the chat bound to a property and
// owner. The server treats this as an idempotent lookup, so repeating the
// call never forks a second conversation.
func (s *Session) CreateOrGetChat(ctx context.Context, propertyID, ownerID string) (models.Chat, error) {
	chat, err := s.client.CreateOrGetChat(ctx, propertyID, ownerID)
	if err != nil {
		return models.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	s.store.UpsertChat(chat)
	s.store.SetActiveChat(chat.ID)
	return chat, nil
}

// SetTyping forwards a typing indicator over the push channel, best effort.
func (s *Session) SetTyping(chatID string, isTyping bool) {
	s.manager.SendTyping(chatID, isTyping)
}
