package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-sync/internal/models"
)

// Center holds ephemeral notifications derived from inbound activity. A
// notification's read state is independent of the read flag of the message
// that produced it.
type Center struct {
	mu            sync.RWMutex
	notifications []models.Notification
}

// NewCenter builds an empty notification center.
func NewCenter() *Center {
	return &Center{}
}

// Push prepends a notification, assigning an id and timestamp when absent.
func (c *Center) Push(n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append([]models.Notification{n}, c.notifications...)
	return n
}

// List returns all notifications, newest first.
func (c *Center) List() []models.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Notification(nil), c.notifications...)
}

// UnreadCount reports how many notifications have not been read.
func (c *Center) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, notif := range c.notifications {
		if !notif.Read {
			n++
		}
	}
	return n
}

// MarkRead flags a single notification as read. Unknown ids are no-ops.
func (c *Center) MarkRead(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.notifications {
		if c.notifications[i].ID == id {
			c.notifications[i].Read = true
			return
		}
	}
}

// MarkAllRead flags every notification as read.
func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.notifications {
		c.notifications[i].Read = true
	}
}

// Clear drops all notifications.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = nil
}
