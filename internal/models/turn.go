// internal/models/turn.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TurnKind distinguishes the setter naming a trick from a defender matching it.
type TurnKind string

const (
	TurnSet   TurnKind = "set"
	TurnMatch TurnKind = "match"
)

// TurnResult is the judged outcome of a video-judged attempt.
type TurnResult string

const (
	ResultPending TurnResult = "pending"
	ResultLanded  TurnResult = "landed"
	ResultMissed  TurnResult = "missed"
)

// Clip is an opaque reference to an uploaded attempt video, produced by the
// external storage/transcoding collaborator.
type Clip struct {
	ClipID       string `json:"clip_id"`
	DurationMS   int    `json:"duration_ms"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Description  string `json:"description,omitempty"`
}

// JudgmentVotes collects at most one vote per side for a judging turn.
// A repeat vote overwrites only that side's own prior vote.
type JudgmentVotes struct {
	AttackerVote *TurnResult `json:"attacker_vote,omitempty"`
	DefenderVote *TurnResult `json:"defender_vote,omitempty"`
}

func (v JudgmentVotes) clone() JudgmentVotes {
	cp := JudgmentVotes{}
	if v.AttackerVote != nil {
		a := *v.AttackerVote
		cp.AttackerVote = &a
	}
	if v.DefenderVote != nil {
		d := *v.DefenderVote
		cp.DefenderVote = &d
	}
	return cp
}

// Complete reports whether both sides have voted.
func (v JudgmentVotes) Complete() bool {
	return v.AttackerVote != nil && v.DefenderVote != nil
}

// Turn is an append-only move record; only judged results and votes are
// attached after creation.
type Turn struct {
	ID          uuid.UUID `json:"id"`
	RoundNumber int       `json:"round_number"`
	PlayerID    uuid.UUID `json:"player_id"`
	Kind        TurnKind  `json:"kind"`
	TrickName   string    `json:"trick_name"`

	Clip *Clip `json:"clip,omitempty"`

	Result TurnResult `json:"result"`

	// JudgedBy records how the result was reached: empty until judged,
	// "peer_vote" for the two-party vote path, "dispute:<id>" when a dispute
	// resolution supersedes the original call.
	JudgedBy string `json:"judged_by,omitempty"`

	Votes JudgmentVotes `json:"votes"`

	CreatedAt time.Time `json:"created_at"`
}

// Judged reports whether a final result has been attached.
func (t Turn) Judged() bool {
	return t.JudgedBy != ""
}
