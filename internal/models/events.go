package models

import (
	"encoding/json"
	"time"
)

// Push event types delivered over the persistent channel.
const (
	EventNewMessage   = "chat:newMessage"
	EventNotification = "notification:new"
	EventTyping       = "user_typing"
	EventMessageRead  = "message_read"
	EventUserOnline   = "user_online"
	EventUserOffline  = "user_offline"
)

// PushEnvelope is the wire format for all push-channel events.
type PushEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessagePayload carries the server's authoritative view of the chat that
// received a message.
type NewMessagePayload struct {
	ChatID string `json:"chatId"`
	Chat   Chat   `json:"chat"`
}

// TypingPayload signals that a user started or stopped typing in a chat.
type TypingPayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ReadReceiptPayload marks a single confirmed message as read.
type ReadReceiptPayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

// PresencePayload carries a user_online or user_offline transition. LastSeen
// is set only for user_offline.
type PresencePayload struct {
	UserID   string     `json:"userId"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}
