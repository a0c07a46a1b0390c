// internal/game/dispute.go
package game

import (
	"fmt"
	"time"

	"github.com/skatebattle/skate/internal/models"
)

// applyFileDispute opens an appeal against a "missed" call. The preconditions
// are checked in a fixed order so each failure surfaces a distinct rejection.
// Filing consumes the player's allowance regardless of the eventual outcome.
func applyFileDispute(g *models.GameSession, c FileDispute, res *Result, now time.Time) error {
	p := g.PlayerByID(c.UserID)
	if p == nil {
		return reject(CodeNotInGame, "not in game")
	}
	turn := g.TurnByID(c.TurnID)
	if turn == nil {
		return reject(CodeTurnNotInGame, "turn does not belong to this game")
	}
	if turn.Result != models.ResultMissed {
		return reject(CodeNotDisputable, "Can only dispute a BAIL judgment")
	}
	if turn.PlayerID != c.UserID {
		return reject(CodeNotYourTrick, "can only dispute your own trick")
	}
	if !turn.Judged() {
		return reject(CodeNotJudged, "turn has not been judged yet")
	}
	for i := range g.Disputes {
		if g.Disputes[i].TurnID == c.TurnID && g.Disputes[i].Status == models.DisputeOpen {
			return reject(CodeDisputeOpen, "a dispute is already open for this turn")
		}
	}
	if p.DisputesUsed >= models.DisputeAllowance {
		return reject(CodeDisputeExhausted, "no disputes remaining")
	}

	p.DisputesUsed++
	d := models.Dispute{
		ID:      len(g.Disputes) + 1,
		GameID:  g.ID,
		TurnID:  c.TurnID,
		FiledBy: c.UserID,
		Status:  models.DisputeOpen,
		FiledAt: now,
	}
	g.Disputes = append(g.Disputes, d)
	res.emitAll(IntentDisputeFiled, g, map[string]interface{}{
		"dispute_id": d.ID,
		"turn_id":    c.TurnID.String(),
		"filed_by":   c.UserID.String(),
	})
	return nil
}

// applyResolveDispute applies the external neutral resolver's verdict. A
// reversed "missed" takes back the letter it assigned and recomputes
// completion, reviving a game the bad call had ended.
func applyResolveDispute(g *models.GameSession, c ResolveDispute, res *Result, now time.Time) error {
	if c.FinalResult != models.ResultLanded && c.FinalResult != models.ResultMissed {
		return reject(CodeInvalidCommand, "final result must be landed or missed")
	}
	d := g.DisputeByID(c.DisputeID)
	if d == nil {
		return reject(CodeDisputeNotFound, "dispute not found")
	}
	if d.Status != models.DisputeOpen {
		return reject(CodeDisputeResolved, "dispute already resolved")
	}
	turn := g.TurnByID(d.TurnID)
	if turn == nil {
		return reject(CodeTurnNotInGame, "turn does not belong to this game")
	}

	final := c.FinalResult
	d.Status = models.DisputeResolved
	d.Resolution = &final
	t := now
	d.ResolvedAt = &t

	if final == models.ResultLanded && turn.Result == models.ResultMissed {
		reverseMissedCall(g, turn, d.ID, res, now)
	} else {
		turn.JudgedBy = fmt.Sprintf("dispute:%d", d.ID)
	}

	res.emitAll(IntentDisputeResolved, g, map[string]interface{}{
		"dispute_id": d.ID,
		"result":     string(final),
	})
	return nil
}

// reverseMissedCall rewrites the turn to landed, removes the letter the bad
// call assigned, and revives the session if that letter had ended it.
func reverseMissedCall(g *models.GameSession, turn *models.Turn, disputeID int, res *Result, now time.Time) {
	turn.Result = models.ResultLanded
	turn.JudgedBy = fmt.Sprintf("dispute:%d", disputeID)

	p := g.PlayerByID(turn.PlayerID)
	if p == nil || p.LetterCount == 0 {
		return
	}
	p.LetterCount--
	res.emit(IntentLetterAssigned, g.ID, p.UserID, map[string]interface{}{"letters": p.Letters()})

	if g.Status == models.StatusCompleted && g.RemainingPlayers() > 1 {
		g.Status = models.StatusActive
		g.WinnerID = nil
		// The round the bad call closed is over either way; play on fresh.
		startNextRound(g, res, now)
		res.emitAll(IntentGameResumed, g, nil)
	}
}
