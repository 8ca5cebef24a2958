package router

import (
	"context"
	"log"
	"time"

	"chat-sync/internal/observability"
)

// Run performs the initial bulk fetch and then polls the REST API as a
// backstop against missed push events. It blocks until ctx is cancelled,
// which must happen when the session ends so a dead session's store is
// never mutated.
func (r *Router) Run(ctx context.Context, interval time.Duration) {
	r.refresh(ctx, true)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx, false)
		}
	}
}

// Refresh runs one fallback fetch outside the polling schedule, used after
// reconnects.
func (r *Router) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	r.refresh(ctx, false)
}

// refresh fetches the full chat collection and converges the store to it.
// The first successful fetch replaces the collection outright; later fetches
// merge by identifier so messages applied via push in the meantime are
// neither dropped nor duplicated.
func (r *Router) refresh(ctx context.Context, initial bool) {
	chats, err := r.client.ListChats(ctx)
	if err != nil {
		observability.IncPollCycle("error")
		log.Printf("router: fallback fetch failed: %v", err)
		return
	}
	if initial {
		r.store.ReplaceAll(chats)
	} else {
		r.store.Reconcile(chats)
	}
	observability.IncPollCycle("ok")
}
