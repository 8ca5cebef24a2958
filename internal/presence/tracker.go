package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"chat-sync/internal/api"
	"chat-sync/internal/models"
	"chat-sync/internal/ws"
)

// Tracker maintains online/last-seen state per known user, refreshed by batch
// query and by live push events. Records are created lazily on first query; a
// requested id always ends up with an entry, even when the fetch fails.
type Tracker struct {
	client api.Client

	mu      sync.RWMutex
	records map[string]models.PresenceStatus
}

// NewTracker builds an empty tracker.
func NewTracker(client api.Client) *Tracker {
	return &Tracker{
		client:  client,
		records: make(map[string]models.PresenceStatus),
	}
}

// Attach subscribes the tracker to live presence events from the push
// channel.
func (t *Tracker) Attach(manager *ws.Manager) {
	manager.OnPresence(func(event string, p models.PresencePayload) {
		switch event {
		case models.EventUserOnline:
			t.setOnline(p.UserID)
		case models.EventUserOffline:
			t.setOffline(p.UserID, p.LastSeen)
		}
	})
}

// FetchStatus batch-refreshes the given users. On any failure, network or
// malformed payload, every requested id is recorded as offline with no last
// seen rather than leaving stale or missing entries.
func (t *Tracker) FetchStatus(ctx context.Context, userIDs []string) {
	if len(userIDs) == 0 {
		return
	}

	statuses, err := t.client.FetchStatus(ctx, userIDs)
	if err != nil {
		log.Printf("presence: status fetch failed, defaulting %d users to offline: %v", len(userIDs), err)
		t.mu.Lock()
		for _, id := range userIDs {
			t.records[id] = models.PresenceStatus{UserID: id, Online: false, LastSeen: nil}
		}
		t.mu.Unlock()
		return
	}

	byID := make(map[string]models.PresenceStatus, len(statuses))
	for _, s := range statuses {
		byID[s.UserID] = s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range userIDs {
		if s, ok := byID[id]; ok {
			t.records[id] = s
			continue
		}
		// the server omitted a requested id, never leave it missing
		t.records[id] = models.PresenceStatus{UserID: id, Online: false, LastSeen: nil}
	}
}

// Status returns the record for one user. The second return is false when
// the user was never queried or seen.
func (t *Tracker) Status(userID string) (models.PresenceStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.records[userID]
	return s, ok
}

// Snapshot returns all known records keyed by user id.
func (t *Tracker) Snapshot() map[string]models.PresenceStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]models.PresenceStatus, len(t.records))
	for id, s := range t.records {
		out[id] = s
	}
	return out
}

func (t *Tracker) setOnline(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.records[userID]
	rec.UserID = userID
	rec.Online = true
	t.records[userID] = rec
}

func (t *Tracker) setOffline(userID string, lastSeen *time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.records[userID]
	rec.UserID = userID
	rec.Online = false
	if lastSeen != nil {
		rec.LastSeen = lastSeen
	}
	t.records[userID] = rec
}
