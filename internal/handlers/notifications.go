package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/models"
	"chat-sync/internal/notify"
	"chat-sync/internal/presence"
	"chat-sync/internal/ws"
)

// NotificationHandler exposes the notification center and presence records.
type NotificationHandler struct {
	center  *notify.Center
	tracker *presence.Tracker
	manager *ws.Manager
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(center *notify.Center, tracker *presence.Tracker, manager *ws.Manager) *NotificationHandler {
	return &NotificationHandler{center: center, tracker: tracker, manager: manager}
}

// List returns all notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.center.List(),
		"unread":        h.center.UnreadCount(),
	})
}

// MarkRead dismisses one notification.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	h.center.MarkRead(c.Param("notification_id"))
	c.Status(http.StatusNoContent)
}

// MarkAllRead dismisses every notification.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	h.center.MarkAllRead()
	c.Status(http.StatusNoContent)
}

// Clear drops all notifications.
func (h *NotificationHandler) Clear(c *gin.Context) {
	h.center.Clear()
	c.Status(http.StatusNoContent)
}

// Status batch-refreshes presence for the requested users and returns the
// resulting records. Failed fetches surface as offline records, never as
// missing entries.
func (h *NotificationHandler) Status(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"userIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracker.FetchStatus(c.Request.Context(), req.UserIDs)

	statuses := make([]models.PresenceStatus, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if s, ok := h.tracker.Status(id); ok {
			statuses = append(statuses, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

// Connection reports the push-channel connectivity state.
func (h *NotificationHandler) Connection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.manager.State()})
}

// Healthz is the liveness probe.
func (h *NotificationHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
