package models

import "time"

// Notification is an ephemeral alert derived from inbound activity. Its read
// flag is independent of the underlying message's read flag.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ChatID    string    `json:"chatId,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
