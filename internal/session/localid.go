package session

import (
	"github.com/google/uuid"

	"chat-sync/internal/models"
)

// newLocalID returns a tentative message identifier. Random uuids keep rapid
// successive sends collision-free, which a coarse timestamp cannot, and the
// prefix keeps the id disjoint from the server's identifier space. Rollback
// matches on the generated value itself, never on a re-derived one.
func newLocalID() string {
	return models.TentativeIDPrefix + uuid.NewString()
}
