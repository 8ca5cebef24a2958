package models

import (
	"strings"
	"time"
)

// TentativeIDPrefix marks locally generated message identifiers. Server
// identifiers never carry it, so tentative messages are distinguishable at
// every point of the pipeline.
const TentativeIDPrefix = "local-"

// Message is a single chat message. ID is either server-confirmed or a
// tentative placeholder pending confirmation.
type Message struct {
	ID        string      `json:"id"`
	ChatID    string      `json:"chatId"`
	Sender    Participant `json:"sender"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	Read      bool        `json:"read"`
}

// Tentative reports whether the message is a local placeholder that has not
// been confirmed by the server.
func (m Message) Tentative() bool {
	return strings.HasPrefix(m.ID, TentativeIDPrefix)
}

// Before defines the total order of messages within a chat: ascending
// createdAt, ties broken by identifier.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
