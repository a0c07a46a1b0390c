// internal/game/ledger.go
package game

import (
	"github.com/google/uuid"
	"github.com/skatebattle/skate/internal/models"
)

// The session carries a bounded most-recent-N list of processed command event
// ids so replays of recent commands are recognized and never re-applied. The
// list is ordered oldest first; appending past capacity evicts the oldest.

// seenEvent reports whether the event id was already applied to the session.
func seenEvent(g *models.GameSession, eventID uuid.UUID) bool {
	for _, id := range g.ProcessedEventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

// recordEvent appends the event id, evicting the oldest past capacity.
func recordEvent(g *models.GameSession, eventID uuid.UUID) {
	g.ProcessedEventIDs = append(g.ProcessedEventIDs, eventID)
	if over := len(g.ProcessedEventIDs) - models.ProcessedEventCap; over > 0 {
		g.ProcessedEventIDs = g.ProcessedEventIDs[over:]
	}
}
