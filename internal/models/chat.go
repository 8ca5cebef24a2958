package models

import "time"

// Participant identifies one side of a chat along with display fields.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// PropertyRef links a chat to the listing it was started from.
type PropertyRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Chat is a conversation between two or more participants, optionally tied
// to a property listing. The server assigns stable identifiers; for a given
// (property, participant pair) the server returns exactly one chat.
type Chat struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	Property     *PropertyRef  `json:"property,omitempty"`
	Messages     []Message     `json:"messages"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy so store snapshots cannot be mutated by callers.
func (c Chat) Clone() Chat {
	cp := c
	cp.Participants = append([]Participant(nil), c.Participants...)
	cp.Messages = append([]Message(nil), c.Messages...)
	if c.Property != nil {
		prop := *c.Property
		cp.Property = &prop
	}
	return cp
}

// HasParticipant reports whether the given user belongs to the chat.
func (c Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}
