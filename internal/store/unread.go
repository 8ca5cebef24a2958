package store

import "chat-sync/internal/models"

// UnreadCount derives the number of unread inbound messages across all chats:
// messages not authored by the current user whose read flag is unset. It is
// recomputed from store state on every call and never cached, so it cannot
// drift from the collection it derives from.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, c := range s.chats {
		total += countUnread(c.Messages, s.currentUserID)
	}
	return total
}

// UnreadInChat derives the unread count for a single chat. Unknown chats
// report zero.
func (s *Store) UnreadInChat(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chats {
		if c.ID == chatID {
			return countUnread(c.Messages, s.currentUserID)
		}
	}
	return 0
}

func countUnread(msgs []models.Message, userID string) int {
	n := 0
	for _, m := range msgs {
		if !m.Read && m.Sender.ID != userID {
			n++
		}
	}
	return n
}
