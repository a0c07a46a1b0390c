// internal/game/command.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/skatebattle/skate/internal/models"
)

// eventNamespace seeds deterministic event ids so retried commands with a
// natural sequence key dedupe against the session ledger.
var eventNamespace = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

// DeterministicEventID derives a stable id from (kind, actor, game, seq).
// Use it whenever the command has a natural sequence key (a turn id, a round
// number); otherwise callers should use uuid.New().
func DeterministicEventID(kind string, actor, game uuid.UUID, seq string) uuid.UUID {
	return uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%s|%s|%s|%s", kind, actor, game, seq)))
}

// ForfeitReason distinguishes voluntary concessions from reaper-driven ones.
type ForfeitReason string

const (
	ForfeitVoluntary         ForfeitReason = "voluntary"
	ForfeitDisconnectTimeout ForfeitReason = "disconnect_timeout"
	ForfeitTurnTimeout       ForfeitReason = "turn_timeout"
)

// Command is a closed union of everything the engine can apply to a session.
// The single exhaustive switch lives in Apply; adding a variant without
// extending it is a compile-time visible omission.
type Command interface {
	EventID() uuid.UUID
	GameID() uuid.UUID
	isCommand()
}

// Header is the common envelope embedded in every command variant.
type Header struct {
	Event uuid.UUID `json:"event_id"`
	Game  uuid.UUID `json:"game_id"`
}

func (h Header) EventID() uuid.UUID { return h.Event }
func (h Header) GameID() uuid.UUID  { return h.Game }
func (Header) isCommand()           {}

// CreateGame opens a new session in "waiting" with the creator seated.
// Game carries the id the new session will take, derived by the surface.
type CreateGame struct {
	Header
	SpotID     uuid.UUID
	CreatorID  uuid.UUID
	MaxPlayers int
}

// JoinGame seats a player in a waiting session; the session activates once
// at least MinPlayers are present.
type JoinGame struct {
	Header
	UserID uuid.UUID
}

// SubmitTrick is the setter naming a trick (set phase) or, when Clip is nil,
// the synchronous "I landed the match" move during the attempt phase. With a
// Clip attached during the attempt phase it opens a video-judged turn.
type SubmitTrick struct {
	Header
	UserID    uuid.UUID
	TrickName string
	Clip      *models.Clip
}

// PassTrick concedes the current attempt, earning the next letter.
type PassTrick struct {
	Header
	UserID uuid.UUID
}

// CastVote records one side's judgment of the turn under review.
type CastVote struct {
	Header
	UserID uuid.UUID
	Vote   models.TurnResult
}

// Disconnect marks a player as gone; an active session pauses.
type Disconnect struct {
	Header
	UserID uuid.UUID
}

// Reconnect marks a player as back; the session resumes once everyone is.
type Reconnect struct {
	Header
	UserID uuid.UUID
}

// Forfeit concedes the whole game.
type Forfeit struct {
	Header
	UserID uuid.UUID
	Reason ForfeitReason
}

// FileDispute opens an appeal against a "missed" call on the filer's trick.
type FileDispute struct {
	Header
	UserID uuid.UUID
	TurnID uuid.UUID
}

// ResolveDispute is issued by the external neutral resolver and supersedes
// the original judgment.
type ResolveDispute struct {
	Header
	DisputeID   int
	FinalResult models.TurnResult
}
