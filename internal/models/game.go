// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus is the lifecycle state of a session.
type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting"
	StatusActive    GameStatus = "active"
	StatusPaused    GameStatus = "paused"
	StatusCompleted GameStatus = "completed"
	StatusAbandoned GameStatus = "abandoned"
)

// GamePhase is the sub-state of an active session.
type GamePhase string

const (
	PhaseSet           GamePhase = "set"
	PhaseAttempt       GamePhase = "attempt"
	PhaseJudging       GamePhase = "judging"
	PhaseRoundComplete GamePhase = "round_complete"
)

// MinPlayers and MaxPlayersCap bound the session size; requested maxPlayers is clamped.
const (
	MinPlayers    = 2
	MaxPlayersCap = 8
)

// ProcessedEventCap bounds the recent-event-id ring kept per session for dedup.
const ProcessedEventCap = 64

// DisputeAllowance is how many disputes each player may file per game,
// consumed on filing regardless of outcome.
const DisputeAllowance = 2

// GameSession is the authoritative aggregate for one game of S.K.A.T.E.
// It is owned by exactly one row in storage and is only ever mutated inside
// a single transactional unit via the state machine.
type GameSession struct {
	ID     uuid.UUID `json:"id"`
	SpotID uuid.UUID `json:"spot_id"`

	Players    []Player `json:"players"`
	MaxPlayers int      `json:"max_players"`

	Status       GameStatus `json:"status"`
	CurrentPhase GamePhase  `json:"current_phase"`

	// CurrentTurnIndex indexes Players; while active it always points at a
	// connected, non-eliminated player.
	CurrentTurnIndex int `json:"current_turn_index"`

	// SetterIndex indexes the player who names the trick for the current round.
	SetterIndex  int    `json:"setter_index"`
	CurrentTrick string `json:"current_trick,omitempty"`
	RoundNumber  int    `json:"round_number"`

	// AttemptedThisRound tracks which players have already taken their attempt
	// in the current round, so eliminations mid-round keep rotation correct.
	AttemptedThisRound []uuid.UUID `json:"attempted_this_round,omitempty"`

	Turns    []Turn    `json:"turns,omitempty"`
	Disputes []Dispute `json:"disputes,omitempty"`

	WinnerID *uuid.UUID `json:"winner_id,omitempty"`

	TurnDeadlineAt *time.Time `json:"turn_deadline_at,omitempty"`
	PausedAt       *time.Time `json:"paused_at,omitempty"`

	// TurnTimeoutSec controls the per-turn deadline recomputed whenever a new
	// turn starts or the session resumes from pause. 0 disables deadlines.
	TurnTimeoutSec int `json:"turn_timeout_sec"`

	// ProcessedEventIDs is a bounded most-recent-N list of command event ids,
	// oldest first. See game.Ledger for the ring semantics.
	ProcessedEventIDs []uuid.UUID `json:"processed_event_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Player is embedded in GameSession and owned exclusively by it.
type Player struct {
	UserID uuid.UUID `json:"user_id"`

	// LetterCount is the number of letters of "SKATE" the player has earned
	// (0..5). Representing letters as a count makes the prefix invariant
	// structural; five letters eliminates the player permanently.
	LetterCount int `json:"letter_count"`

	// DisputesUsed counts filed disputes against the per-game allowance.
	DisputesUsed int `json:"disputes_used"`

	Connected      bool       `json:"connected"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// Letters renders the earned prefix of "SKATE".
func (p Player) Letters() string {
	return "SKATE"[:p.LetterCount]
}

// Eliminated reports whether the player has spelled the full word.
func (p Player) Eliminated() bool {
	return p.LetterCount >= 5
}

// PlayerByID returns a pointer into Players, or nil if absent.
func (g *GameSession) PlayerByID(id uuid.UUID) *Player {
	for i := range g.Players {
		if g.Players[i].UserID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// RemainingPlayers counts non-eliminated players.
func (g *GameSession) RemainingPlayers() int {
	n := 0
	for i := range g.Players {
		if !g.Players[i].Eliminated() {
			n++
		}
	}
	return n
}

// CurrentPlayer returns the player whose turn it is, or nil when the index is
// out of range (defensive; should not happen while active).
func (g *GameSession) CurrentPlayer() *Player {
	if g.CurrentTurnIndex < 0 || g.CurrentTurnIndex >= len(g.Players) {
		return nil
	}
	return &g.Players[g.CurrentTurnIndex]
}

// TurnByID returns a pointer into Turns, or nil if absent.
func (g *GameSession) TurnByID(id uuid.UUID) *Turn {
	for i := range g.Turns {
		if g.Turns[i].ID == id {
			return &g.Turns[i]
		}
	}
	return nil
}

// DisputeByID returns a pointer into Disputes, or nil if absent.
func (g *GameSession) DisputeByID(id int) *Dispute {
	for i := range g.Disputes {
		if g.Disputes[i].ID == id {
			return &g.Disputes[i]
		}
	}
	return nil
}

// Clone deep-copies the session so the state machine can be applied to a
// scratch copy and discarded on rejection without partial writes.
func (g *GameSession) Clone() *GameSession {
	cp := *g
	cp.Players = append([]Player(nil), g.Players...)
	cp.AttemptedThisRound = append([]uuid.UUID(nil), g.AttemptedThisRound...)
	cp.Turns = append([]Turn(nil), g.Turns...)
	cp.Disputes = append([]Dispute(nil), g.Disputes...)
	cp.ProcessedEventIDs = append([]uuid.UUID(nil), g.ProcessedEventIDs...)
	if g.WinnerID != nil {
		w := *g.WinnerID
		cp.WinnerID = &w
	}
	if g.TurnDeadlineAt != nil {
		t := *g.TurnDeadlineAt
		cp.TurnDeadlineAt = &t
	}
	if g.PausedAt != nil {
		t := *g.PausedAt
		cp.PausedAt = &t
	}
	for i := range cp.Turns {
		cp.Turns[i].Votes = g.Turns[i].Votes.clone()
	}
	return &cp
}
