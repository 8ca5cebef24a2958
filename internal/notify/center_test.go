package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/models"
)

func TestPushAssignsIDAndPrepends(t *testing.T) {
	c := NewCenter()

	c.Push(models.Notification{Type: "message", Content: "first"})
	second := c.Push(models.Notification{Type: "message", Content: "second"})

	require.NotEmpty(t, second.ID)
	require.False(t, second.CreatedAt.IsZero())

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Content)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	c := NewCenter()
	n1 := c.Push(models.Notification{Type: "message"})
	c.Push(models.Notification{Type: "booking_request"})
	require.Equal(t, 2, c.UnreadCount())

	c.MarkRead(n1.ID)
	assert.Equal(t, 1, c.UnreadCount())

	c.MarkRead("unknown")
	assert.Equal(t, 1, c.UnreadCount())

	c.MarkAllRead()
	assert.Equal(t, 0, c.UnreadCount())
}

func TestClear(t *testing.T) {
	c := NewCenter()
	c.Push(models.Notification{Type: "message"})
	c.Clear()
	assert.Empty(t, c.List())
	assert.Equal(t, 0, c.UnreadCount())
}
