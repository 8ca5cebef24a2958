package models

import "time"

// PresenceStatus is the online/last-seen state of a single user.
type PresenceStatus struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen"`
}
