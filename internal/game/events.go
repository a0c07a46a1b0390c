// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/skatebattle/skate/internal/models"
)

// IntentType enumerates the notification intents a transition can emit.
// The engine only enqueues intents; delivery belongs to an external
// collaborator consuming the queue.
type IntentType string

const (
	IntentGameCreated     IntentType = "game_created"
	IntentPlayerJoined    IntentType = "player_joined"
	IntentGameStarted     IntentType = "game_started"
	IntentTurnStarted     IntentType = "turn_started"
	IntentTrickSet        IntentType = "trick_set"
	IntentJudgingStarted  IntentType = "judging_started"
	IntentLetterAssigned  IntentType = "letter_assigned"
	IntentPlayerOut       IntentType = "player_eliminated"
	IntentGameCompleted   IntentType = "game_completed"
	IntentGamePaused      IntentType = "game_paused"
	IntentGameResumed     IntentType = "game_resumed"
	IntentDeadlineWarning IntentType = "deadline_warning"
	IntentDisputeFiled    IntentType = "dispute_filed"
	IntentDisputeResolved IntentType = "dispute_resolved"
)

// Intent is a side-effect the engine wants performed after commit, keyed by
// the player it concerns.
type Intent struct {
	Type     IntentType             `json:"type"`
	GameID   uuid.UUID              `json:"game_id"`
	PlayerID uuid.UUID              `json:"player_id"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// Result is what a successful transition hands back alongside the new state.
// AlreadyProcessed marks an idempotent replay: the state is unchanged and no
// intents are emitted, so side effects never re-fire.
type Result struct {
	AlreadyProcessed bool
	Intents          []Intent
}

func (r *Result) emit(t IntentType, gameID, playerID uuid.UUID, payload map[string]interface{}) {
	r.Intents = append(r.Intents, Intent{Type: t, GameID: gameID, PlayerID: playerID, Payload: payload})
}

// emitAll fans one intent out to every player in the session.
func (r *Result) emitAll(t IntentType, g *models.GameSession, payload map[string]interface{}) {
	for i := range g.Players {
		r.emit(t, g.ID, g.Players[i].UserID, payload)
	}
}
