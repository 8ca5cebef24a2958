package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/router"
	"chat-sync/internal/session"
	"chat-sync/internal/store"
)

// ChatHandler exposes the synchronized chat view over the local facade. It
// reads from the store and writes through the session coordinator; it never
// touches the transport directly.
type ChatHandler struct {
	store   *store.Store
	session *session.Session
	router  *router.Router
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(st *store.Store, sess *session.Session, rt *router.Router) *ChatHandler {
	return &ChatHandler{store: st, session: sess, router: rt}
}

// ListChats returns all chats in recency order plus the derived unread count.
func (h *ChatHandler) ListChats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"chats":  h.store.ListChats(),
		"unread": h.store.UnreadCount(),
	})
}

// GetChat returns a single chat with its live typing indicator.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	chat, err := h.store.GetChat(chatID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	resp := gin.H{"chat": chat, "unread": h.store.UnreadInChat(chatID)}
	if userID, ok := h.router.TypingUser(chatID); ok {
		resp["typing"] = userID
	}
	c.JSON(http.StatusOK, resp)
}

// StartChat creates or returns the chat for a property and owner.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		PropertyID string `json:"propertyId" binding:"required"`
		OwnerID    string `json:"ownerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.session.CreateOrGetChat(c.Request.Context(), req.PropertyID, req.OwnerID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not create chat"})
		return
	}
	c.JSON(http.StatusOK, chat)
}

// PostMessage sends a message through the optimistic write path.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	chatID := c.Param("chat_id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.session.SendMessage(c.Request.Context(), chatID, req.Content)
	switch {
	case errors.Is(err, session.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty content"})
	case errors.Is(err, store.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send message"})
	default:
		c.JSON(http.StatusCreated, chat)
	}
}

// MarkRead confirms the chat as read with the server.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID := c.Param("chat_id")
	if err := h.session.MarkAsRead(c.Request.Context(), chatID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to mark chat read"})
		return
	}

	chat, err := h.store.GetChat(chatID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	c.JSON(http.StatusOK, chat)
}

// OpenChat marks the chat active, triggering read confirmation as a side
// effect.
func (h *ChatHandler) OpenChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	if _, err := h.store.GetChat(chatID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	if err := h.session.SetActiveChat(c.Request.Context(), chatID); err != nil {
		// the chat is active either way; the badge stays honest because
		// nothing was marked read locally
		c.JSON(http.StatusBadGateway, gin.H{"error": "read confirmation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": h.store.UnreadCount()})
}

// CloseChat clears the active chat.
func (h *ChatHandler) CloseChat(c *gin.Context) {
	_ = h.session.SetActiveChat(c.Request.Context(), "")
	c.Status(http.StatusNoContent)
}

// Typing forwards the caller's typing state, fire and forget.
func (h *ChatHandler) Typing(c *gin.Context) {
	var req struct {
		IsTyping bool `json:"isTyping"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.session.SetTyping(c.Param("chat_id"), req.IsTyping)
	c.Status(http.StatusAccepted)
}

// Unread reports the derived unread message count.
func (h *ChatHandler) Unread(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"unread": h.store.UnreadCount()})
}
