// internal/models/dispute.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// DisputeStatus is the lifecycle of an appeal.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// Dispute is an immutable appeal record challenging a "missed" call on the
// disputant's own trick. Resolution is performed by an external neutral
// resolver; its final result supersedes the original judgment.
type Dispute struct {
	ID      int       `json:"id"` // positive, per-game sequence
	GameID  uuid.UUID `json:"game_id"`
	TurnID  uuid.UUID `json:"turn_id"`
	FiledBy uuid.UUID `json:"filed_by"`

	Status     DisputeStatus `json:"status"`
	Resolution *TurnResult   `json:"resolution,omitempty"`

	FiledAt    time.Time  `json:"filed_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
