package store

import (
	"errors"
	"sort"
	"sync"

	"chat-sync/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// Store is the canonical in-memory view of all chats for the current session.
// It is the single shared mutable resource: the inbound router and the write
// coordinator propose mutations through the entry points below, consumers only
// read snapshots. Every mutation re-establishes the per-chat ordering
// invariant (ascending createdAt, ties broken by identifier) and bumps a
// revision that subscribers are notified about.
type Store struct {
	mu            sync.RWMutex
	currentUserID string
	chats         []models.Chat // recency order, most recent first
	activeChatID  string
	revision      uint64
	subs          map[chan uint64]struct{}
}

// New creates an empty store owned by the given user.
func New(currentUserID string) *Store {
	return &Store{
		currentUserID: currentUserID,
		subs:          make(map[chan uint64]struct{}),
	}
}

// CurrentUserID returns the session owner.
func (s *Store) CurrentUserID() string {
	return s.currentUserID
}

// Subscribe registers a channel that receives the store revision after each
// mutation. Delivery is coalescing: a slow subscriber observes the latest
// revision, not every intermediate one.
func (s *Store) Subscribe() chan uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan uint64, 1)
	s.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a previously registered channel.
func (s *Store) Unsubscribe(ch chan uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, ch)
}

// notifyLocked bumps the revision and signals subscribers. Callers hold mu.
func (s *Store) notifyLocked() {
	s.revision++
	rev := s.revision
	for ch := range s.subs {
		select {
		case ch <- rev:
		default:
			// drain the stale revision and replace it with the latest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- rev:
			default:
			}
		}
	}
}

// Revision returns the current mutation counter.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// ListChats returns a deep copy of all chats in recency order.
func (s *Store) ListChats() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, c.Clone())
	}
	return out
}

// GetChat returns a deep copy of one chat.
func (s *Store) GetChat(chatID string) (models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chats {
		if c.ID == chatID {
			return c.Clone(), nil
		}
	}
	return models.Chat{}, ErrChatNotFound
}

// SetActiveChat records which chat is open in the UI. An empty id means no
// chat is active.
func (s *Store) SetActiveChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeChatID == chatID {
		return
	}
	s.activeChatID = chatID
	s.notifyLocked()
}

// ActiveChat returns the currently open chat id, if any.
func (s *Store) ActiveChat() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeChatID
}

// ReplaceAll swaps the entire chat collection, used for the initial bulk
// fetch. Each chat is normalized before storage.
func (s *Store) ReplaceAll(chats []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make([]models.Chat, 0, len(chats))
	for _, c := range chats {
		s.chats = append(s.chats, normalizeChat(c.Clone()))
	}
	s.notifyLocked()
}

// UpsertChat replaces the chat with the same id wholesale, or inserts it when
// absent, and moves it to the head of the recency order. The given chat is
// treated as authoritative for its id.
func (s *Store) UpsertChat(chat models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(normalizeChat(chat.Clone()))
	s.notifyLocked()
}

// MergeChat combines the given chat with any stored copy: messages are
// unioned by identifier with the incoming copy winning per id, so a message
// already applied through another delivery path is never duplicated and a
// tentative local message is never lost. Participants, property and updatedAt
// come from the incoming chat. The chat moves to the head of recency order.
func (s *Store) MergeChat(chat models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	incoming := normalizeChat(chat.Clone())
	for _, existing := range s.chats {
		if existing.ID == incoming.ID {
			incoming.Messages = mergeMessages(existing.Messages, incoming.Messages)
			break
		}
	}
	s.upsertLocked(incoming)
	s.notifyLocked()
}

// Reconcile converges the store to a full fallback snapshot. Every snapshot
// chat is merged by message identifier with the stored copy, so messages that
// arrived via push before the snapshot was taken are neither dropped nor
// duplicated. Chats absent from the snapshot are removed, except chats still
// holding a tentative message from an in-flight send.
func (s *Store) Reconcile(snapshot []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existingByID := make(map[string]models.Chat, len(s.chats))
	for _, c := range s.chats {
		existingByID[c.ID] = c
	}

	next := make([]models.Chat, 0, len(snapshot))
	seen := make(map[string]struct{}, len(snapshot))
	for _, c := range snapshot {
		incoming := normalizeChat(c.Clone())
		if existing, ok := existingByID[incoming.ID]; ok {
			incoming.Messages = mergeMessages(existing.Messages, incoming.Messages)
		}
		next = append(next, incoming)
		seen[incoming.ID] = struct{}{}
	}
	for _, c := range s.chats {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		if hasTentative(c.Messages) {
			next = append(next, c)
		}
	}

	s.chats = next
	s.notifyLocked()
}

// AppendMessage inserts a message into its chat, keeping the ordering
// invariant. It is idempotent: a message whose identifier is already present
// in the chat is a no-op. Returns ErrChatNotFound when the chat is unknown.
func (s *Store) AppendMessage(chatID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chats {
		if s.chats[i].ID != chatID {
			continue
		}
		for _, existing := range s.chats[i].Messages {
			if existing.ID == msg.ID {
				return nil
			}
		}
		s.chats[i].Messages = insertOrdered(s.chats[i].Messages, msg)
		s.notifyLocked()
		return nil
	}
	return ErrChatNotFound
}

// RemoveMessage deletes a message by identifier. Unknown chat or message ids
// are no-ops so rollbacks cannot fail.
func (s *Store) RemoveMessage(chatID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chats {
		if s.chats[i].ID != chatID {
			continue
		}
		msgs := s.chats[i].Messages
		for j := range msgs {
			if msgs[j].ID == messageID {
				s.chats[i].Messages = append(msgs[:j:j], msgs[j+1:]...)
				s.notifyLocked()
				return
			}
		}
		return
	}
}

// MarkMessageRead flips a single message's read flag in place, driven by
// read-receipt events.
func (s *Store) MarkMessageRead(chatID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chats {
		if s.chats[i].ID != chatID {
			continue
		}
		for j := range s.chats[i].Messages {
			if s.chats[i].Messages[j].ID == messageID {
				if !s.chats[i].Messages[j].Read {
					s.chats[i].Messages[j].Read = true
					s.notifyLocked()
				}
				return
			}
		}
		return
	}
}

// upsertLocked replaces or inserts the chat and moves it to the head.
func (s *Store) upsertLocked(chat models.Chat) {
	for i := range s.chats {
		if s.chats[i].ID == chat.ID {
			s.chats = append(s.chats[:i], s.chats[i+1:]...)
			break
		}
	}
	s.chats = append([]models.Chat{chat}, s.chats...)
}

// normalizeChat sorts messages and drops duplicate identifiers, keeping the
// last occurrence so a payload that repeats an id self-corrects.
func normalizeChat(chat models.Chat) models.Chat {
	byID := make(map[string]models.Message, len(chat.Messages))
	for _, m := range chat.Messages {
		byID[m.ID] = m
	}
	msgs := make([]models.Message, 0, len(byID))
	for _, m := range byID {
		msgs = append(msgs, m)
	}
	sortMessages(msgs)
	chat.Messages = msgs
	return chat
}

// mergeMessages unions two ordered message lists by identifier. The incoming
// side wins for a shared id; messages only present locally (tentative sends,
// push deliveries newer than a stale snapshot) survive.
func mergeMessages(existing, incoming []models.Message) []models.Message {
	byID := make(map[string]models.Message, len(existing)+len(incoming))
	for _, m := range existing {
		byID[m.ID] = m
	}
	for _, m := range incoming {
		byID[m.ID] = m
	}
	out := make([]models.Message, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sortMessages(out)
	return out
}

func insertOrdered(msgs []models.Message, msg models.Message) []models.Message {
	i := sort.Search(len(msgs), func(i int) bool { return msg.Before(msgs[i]) })
	msgs = append(msgs, models.Message{})
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = msg
	return msgs
}

func sortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
}

func hasTentative(msgs []models.Message) bool {
	for _, m := range msgs {
		if m.Tentative() {
			return true
		}
	}
	return false
}
