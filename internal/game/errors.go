// internal/game/errors.go
package game

import "errors"

// RejectionCode is a stable machine-readable reason for a refused command.
type RejectionCode string

const (
	CodeNotYourTurn      RejectionCode = "not_your_turn"
	CodeGameNotActive    RejectionCode = "game_not_active"
	CodeGameFull         RejectionCode = "game_full"
	CodeAlreadyInGame    RejectionCode = "already_in_game"
	CodeAlreadyStarted   RejectionCode = "game_already_started"
	CodeAlreadyCompleted RejectionCode = "already_completed"
	CodeNotInGame        RejectionCode = "not_in_game"
	CodeWrongPhase       RejectionCode = "wrong_phase"
	CodeNotAJudge        RejectionCode = "not_a_judge"
	CodeInvalidVote      RejectionCode = "invalid_vote"
	CodeTurnNotInGame    RejectionCode = "turn_not_in_game"
	CodeNotDisputable    RejectionCode = "not_disputable"
	CodeNotYourTrick     RejectionCode = "not_your_trick"
	CodeNotJudged        RejectionCode = "not_judged"
	CodeDisputeExhausted RejectionCode = "dispute_exhausted"
	CodeDisputeOpen      RejectionCode = "dispute_already_open"
	CodeDisputeNotFound  RejectionCode = "dispute_not_found"
	CodeDisputeResolved  RejectionCode = "dispute_already_resolved"
	CodeInvalidCommand   RejectionCode = "invalid_command"
)

// RejectionError is a typed, user-facing state-conflict error. Applying a
// command that returns one is guaranteed to leave the session untouched.
type RejectionError struct {
	Code    RejectionCode
	Message string
}

func (e *RejectionError) Error() string { return e.Message }

func reject(code RejectionCode, msg string) error {
	return &RejectionError{Code: code, Message: msg}
}

// IsRejection extracts the RejectionError from err, if any.
func IsRejection(err error) (*RejectionError, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// ErrGameNotFound is returned by stores for unknown session ids.
var ErrGameNotFound = errors.New("game not found")

// ErrGameExists is returned by stores when creating a session whose id is
// already present, which happens on an idempotent create replay.
var ErrGameExists = errors.New("game already exists")
