// internal/game/machine.go
//
// The turn state machine is a pure transform: (session, command, now) ->
// (session', result). It performs no I/O; persistence and intent delivery
// belong to the engine. Every transition validates fully before mutating, so
// a rejected command is an exact no-op.
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/skatebattle/skate/internal/models"
)

// NewSession builds a fresh "waiting" session for a CreateGame command. The
// session id is the command's Game id so a replayed create collides with the
// original row instead of spawning a second game.
func NewSession(cmd CreateGame, now time.Time, turnTimeoutSec int) *models.GameSession {
	maxPlayers := cmd.MaxPlayers
	if maxPlayers < models.MinPlayers {
		maxPlayers = models.MinPlayers
	}
	if maxPlayers > models.MaxPlayersCap {
		maxPlayers = models.MaxPlayersCap
	}
	g := &models.GameSession{
		ID:             cmd.Game,
		SpotID:         cmd.SpotID,
		MaxPlayers:     maxPlayers,
		Status:         models.StatusWaiting,
		TurnTimeoutSec: turnTimeoutSec,
		Players: []models.Player{
			{UserID: cmd.CreatorID, Connected: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	recordEvent(g, cmd.EventID())
	return g
}

// Apply runs one command against the session. It is the single exhaustive
// match over the command union. A RejectionError leaves the session
// untouched; AlreadyProcessed short-circuits everything, including intents.
func Apply(g *models.GameSession, cmd Command, now time.Time) (*Result, error) {
	if seenEvent(g, cmd.EventID()) {
		return &Result{AlreadyProcessed: true}, nil
	}

	res := &Result{}
	var err error
	switch c := cmd.(type) {
	case CreateGame:
		// A create replay that fell out of the ledger still targets the same
		// session id; the store-level conflict is handled by the engine.
		err = reject(CodeInvalidCommand, "game already exists")
	case JoinGame:
		err = applyJoin(g, c, res, now)
	case SubmitTrick:
		err = applySubmitTrick(g, c, res, now)
	case PassTrick:
		err = applyPass(g, c, res, now)
	case CastVote:
		err = applyVote(g, c, res, now)
	case Disconnect:
		err = applyDisconnect(g, c, res, now)
	case Reconnect:
		err = applyReconnect(g, c, res, now)
	case Forfeit:
		err = applyForfeit(g, c, res, now)
	case FileDispute:
		err = applyFileDispute(g, c, res, now)
	case ResolveDispute:
		err = applyResolveDispute(g, c, res, now)
	default:
		err = reject(CodeInvalidCommand, "unknown command")
	}
	if err != nil {
		return nil, err
	}
	recordEvent(g, cmd.EventID())
	g.UpdatedAt = now
	return res, nil
}

func applyJoin(g *models.GameSession, c JoinGame, res *Result, now time.Time) error {
	if g.Status != models.StatusWaiting {
		return reject(CodeAlreadyStarted, "game has already started")
	}
	if g.PlayerByID(c.UserID) != nil {
		return reject(CodeAlreadyInGame, "already in game")
	}
	if len(g.Players) >= g.MaxPlayers {
		return reject(CodeGameFull, "game is full")
	}

	g.Players = append(g.Players, models.Player{UserID: c.UserID, Connected: true})
	res.emitAll(IntentPlayerJoined, g, map[string]interface{}{"user_id": c.UserID.String()})

	// The required player count is the session's max; the creator picks 3 for
	// a three-way game. The minimum clamp keeps the >=2 activation rule.
	if len(g.Players) == g.MaxPlayers {
		g.Status = models.StatusActive
		g.CurrentPhase = models.PhaseSet
		g.RoundNumber = 1
		g.SetterIndex = 0
		g.CurrentTurnIndex = 0
		resetDeadline(g, now)
		res.emitAll(IntentGameStarted, g, nil)
		res.emit(IntentTurnStarted, g.ID, g.Players[0].UserID, map[string]interface{}{"phase": string(models.PhaseSet)})

		// A seat can go dark while the session is still filling. Start such a
		// game paused so the turn index never rests on an absent player; the
		// normal reconnect path resumes it.
		for i := range g.Players {
			if !g.Players[i].Connected {
				g.Status = models.StatusPaused
				t := now
				g.PausedAt = &t
				res.emitAll(IntentGamePaused, g, map[string]interface{}{"user_id": g.Players[i].UserID.String()})
				break
			}
		}
	}
	return nil
}

func applySubmitTrick(g *models.GameSession, c SubmitTrick, res *Result, now time.Time) error {
	if g.Status != models.StatusActive {
		return reject(CodeGameNotActive, "game is not active")
	}
	if g.PlayerByID(c.UserID) == nil {
		return reject(CodeNotInGame, "not in game")
	}

	switch g.CurrentPhase {
	case models.PhaseSet:
		if g.Players[g.SetterIndex].UserID != c.UserID {
			return reject(CodeNotYourTurn, "not your turn")
		}
		g.Turns = append(g.Turns, models.Turn{
			ID:          uuid.New(),
			RoundNumber: g.RoundNumber,
			PlayerID:    c.UserID,
			Kind:        models.TurnSet,
			TrickName:   c.TrickName,
			Clip:        c.Clip,
			Result:      models.ResultLanded,
			CreatedAt:   now,
		})
		g.CurrentTrick = c.TrickName
		g.AttemptedThisRound = nil
		next := nextAttempterIndex(g)
		if next < 0 {
			// Everyone else is eliminated; should have completed earlier.
			return completeWithWinner(g, g.Players[g.SetterIndex].UserID, res, now)
		}
		g.CurrentPhase = models.PhaseAttempt
		g.CurrentTurnIndex = next
		resetDeadline(g, now)
		res.emitAll(IntentTrickSet, g, map[string]interface{}{"trick": c.TrickName, "setter": c.UserID.String()})
		res.emit(IntentTurnStarted, g.ID, g.Players[next].UserID, map[string]interface{}{"phase": string(models.PhaseAttempt), "trick": c.TrickName})
		return nil

	case models.PhaseAttempt:
		if g.CurrentPlayer() == nil || g.CurrentPlayer().UserID != c.UserID {
			return reject(CodeNotYourTurn, "not your turn")
		}
		turn := models.Turn{
			ID:          uuid.New(),
			RoundNumber: g.RoundNumber,
			PlayerID:    c.UserID,
			Kind:        models.TurnMatch,
			TrickName:   g.CurrentTrick,
			Clip:        c.Clip,
			CreatedAt:   now,
		}
		if c.Clip != nil {
			// Video-judged attempt: wait for both participants' votes.
			turn.Result = models.ResultPending
			g.Turns = append(g.Turns, turn)
			g.CurrentPhase = models.PhaseJudging
			resetDeadline(g, now)
			res.emitAll(IntentJudgingStarted, g, map[string]interface{}{"turn_id": turn.ID.String()})
			return nil
		}
		// Synchronous variant: submitting is landing; a failed attempt is a pass.
		turn.Result = models.ResultLanded
		g.Turns = append(g.Turns, turn)
		advanceAfterAttempt(g, c.UserID, res, now)
		return nil

	default:
		return reject(CodeWrongPhase, "a judgment is pending")
	}
}

func applyPass(g *models.GameSession, c PassTrick, res *Result, now time.Time) error {
	if g.Status != models.StatusActive {
		return reject(CodeGameNotActive, "game is not active")
	}
	p := g.PlayerByID(c.UserID)
	if p == nil {
		return reject(CodeNotInGame, "not in game")
	}
	if g.CurrentPhase != models.PhaseAttempt {
		return reject(CodeWrongPhase, "can only pass during attempt phase")
	}
	if g.CurrentPlayer() == nil || g.CurrentPlayer().UserID != c.UserID {
		return reject(CodeNotYourTurn, "not your turn")
	}

	g.Turns = append(g.Turns, models.Turn{
		ID:          uuid.New(),
		RoundNumber: g.RoundNumber,
		PlayerID:    c.UserID,
		Kind:        models.TurnMatch,
		TrickName:   g.CurrentTrick,
		Result:      models.ResultMissed,
		CreatedAt:   now,
	})
	assignLetter(g, p, res)
	if completed := maybeComplete(g, res, now); completed {
		return nil
	}
	advanceAfterAttempt(g, c.UserID, res, now)
	return nil
}

func applyVote(g *models.GameSession, c CastVote, res *Result, now time.Time) error {
	if g.Status != models.StatusActive {
		return reject(CodeGameNotActive, "game is not active")
	}
	if g.CurrentPhase != models.PhaseJudging {
		return reject(CodeWrongPhase, "no judgment in progress")
	}
	if c.Vote != models.ResultLanded && c.Vote != models.ResultMissed {
		return reject(CodeInvalidVote, "vote must be landed or missed")
	}
	turn := pendingTurn(g)
	if turn == nil {
		return reject(CodeWrongPhase, "no judgment in progress")
	}

	attackerID := g.Players[g.SetterIndex].UserID
	defenderID := turn.PlayerID
	vote := c.Vote
	switch c.UserID {
	case attackerID:
		turn.Votes.AttackerVote = &vote
	case defenderID:
		turn.Votes.DefenderVote = &vote
	default:
		return reject(CodeNotAJudge, "only the setter and attempter may vote")
	}

	if !turn.Votes.Complete() {
		return nil
	}

	// Agreement stands; disagreement is forced to landed, giving the defender
	// the benefit of the doubt.
	final := models.ResultLanded
	if *turn.Votes.AttackerVote == *turn.Votes.DefenderVote {
		final = *turn.Votes.AttackerVote
	}
	turn.Result = final
	turn.JudgedBy = "peer_vote"

	if final == models.ResultMissed {
		defender := g.PlayerByID(defenderID)
		assignLetter(g, defender, res)
		if completed := maybeComplete(g, res, now); completed {
			return nil
		}
	}
	advanceAfterAttempt(g, defenderID, res, now)
	return nil
}

func applyDisconnect(g *models.GameSession, c Disconnect, res *Result, now time.Time) error {
	if g.Status == models.StatusCompleted || g.Status == models.StatusAbandoned {
		return reject(CodeAlreadyCompleted, "already completed")
	}
	p := g.PlayerByID(c.UserID)
	if p == nil {
		return reject(CodeNotInGame, "not in game")
	}
	if !p.Connected {
		return nil // repeated disconnect is harmless
	}
	p.Connected = false
	t := now
	p.DisconnectedAt = &t
	if g.Status == models.StatusActive {
		g.Status = models.StatusPaused
		g.PausedAt = &t
		res.emitAll(IntentGamePaused, g, map[string]interface{}{"user_id": c.UserID.String()})
	}
	return nil
}

func applyReconnect(g *models.GameSession, c Reconnect, res *Result, now time.Time) error {
	if g.Status == models.StatusCompleted || g.Status == models.StatusAbandoned {
		return reject(CodeAlreadyCompleted, "already completed")
	}
	p := g.PlayerByID(c.UserID)
	if p == nil {
		return reject(CodeNotInGame, "not in game")
	}
	p.Connected = true
	p.DisconnectedAt = nil

	if g.Status != models.StatusPaused {
		return nil
	}
	for i := range g.Players {
		if !g.Players[i].Connected {
			return nil // stays paused until everyone is back
		}
	}
	g.Status = models.StatusActive
	g.PausedAt = nil
	resetDeadline(g, now)
	res.emitAll(IntentGameResumed, g, nil)
	return nil
}

func applyForfeit(g *models.GameSession, c Forfeit, res *Result, now time.Time) error {
	if g.Status == models.StatusCompleted || g.Status == models.StatusAbandoned {
		return reject(CodeAlreadyCompleted, "already completed")
	}
	if g.Status != models.StatusActive && g.Status != models.StatusPaused {
		return reject(CodeGameNotActive, "game is not active")
	}
	p := g.PlayerByID(c.UserID)
	if p == nil {
		return reject(CodeNotInGame, "not in game")
	}
	if p.Eliminated() {
		return reject(CodeInvalidCommand, "player is already eliminated")
	}

	wasCurrent := g.CurrentPlayer() != nil && g.CurrentPlayer().UserID == c.UserID
	wasSetter := g.Players[g.SetterIndex].UserID == c.UserID

	p.LetterCount = 5
	res.emit(IntentPlayerOut, g.ID, c.UserID, map[string]interface{}{"reason": string(c.Reason)})

	if completed := maybeComplete(g, res, now); completed {
		return nil
	}

	// Three or more remain; repair the rotation if the forfeiter held it.
	// Done even while paused so the turn index never rests on an eliminated
	// player when the session resumes.
	switch {
	case wasSetter && g.CurrentPhase == models.PhaseSet:
		startNextRound(g, res, now)
	case wasCurrent && g.CurrentPhase == models.PhaseAttempt:
		advanceAfterAttempt(g, c.UserID, res, now)
	case g.CurrentPhase == models.PhaseJudging:
		if turn := pendingTurn(g); turn != nil {
			if turn.PlayerID == c.UserID {
				// Defender quit mid-judgment; the attempt is recorded missed
				// but they are already out, so no letter changes hands.
				turn.Result = models.ResultMissed
				turn.JudgedBy = "forfeit"
				advanceAfterAttempt(g, c.UserID, res, now)
			} else if wasSetter {
				// Setter quit before voting; the defender keeps the benefit
				// of the doubt.
				turn.Result = models.ResultLanded
				turn.JudgedBy = "forfeit"
				advanceAfterAttempt(g, turn.PlayerID, res, now)
			}
		}
	}
	return nil
}

// assignLetter appends the next letter of "SKATE"; the count is capped by the
// model so a fifth letter eliminates rather than overflowing.
func assignLetter(g *models.GameSession, p *models.Player, res *Result) {
	if p == nil || p.Eliminated() {
		return
	}
	p.LetterCount++
	res.emit(IntentLetterAssigned, g.ID, p.UserID, map[string]interface{}{"letters": p.Letters()})
	if p.Eliminated() {
		res.emit(IntentPlayerOut, g.ID, p.UserID, nil)
	}
}

// maybeComplete ends the game as soon as one non-eliminated player remains,
// regardless of phase.
func maybeComplete(g *models.GameSession, res *Result, now time.Time) bool {
	if g.RemainingPlayers() > 1 {
		return false
	}
	for i := range g.Players {
		if !g.Players[i].Eliminated() {
			_ = completeWithWinner(g, g.Players[i].UserID, res, now)
			return true
		}
	}
	// Nobody left standing; the session is dead rather than won.
	g.Status = models.StatusAbandoned
	g.TurnDeadlineAt = nil
	g.UpdatedAt = now
	return true
}

func completeWithWinner(g *models.GameSession, winner uuid.UUID, res *Result, now time.Time) error {
	g.Status = models.StatusCompleted
	w := winner
	g.WinnerID = &w
	g.TurnDeadlineAt = nil
	g.PausedAt = nil
	res.emitAll(IntentGameCompleted, g, map[string]interface{}{"winner_id": winner.String()})
	return nil
}

// advanceAfterAttempt records the finished attempter and hands the turn to
// the next non-eliminated player who has not attempted this round, or rotates
// the round when everyone has gone.
func advanceAfterAttempt(g *models.GameSession, attempter uuid.UUID, res *Result, now time.Time) {
	g.AttemptedThisRound = append(g.AttemptedThisRound, attempter)
	g.CurrentPhase = models.PhaseAttempt
	next := nextAttempterIndex(g)
	if next < 0 {
		g.CurrentPhase = models.PhaseRoundComplete
		startNextRound(g, res, now)
		return
	}
	g.CurrentTurnIndex = next
	resetDeadline(g, now)
	res.emit(IntentTurnStarted, g.ID, g.Players[next].UserID, map[string]interface{}{"phase": string(models.PhaseAttempt), "trick": g.CurrentTrick})
}

// startNextRound rotates the setter round-robin to the next non-eliminated
// player after the prior setter and reopens the set phase.
func startNextRound(g *models.GameSession, res *Result, now time.Time) {
	next := nextStandingAfter(g, g.SetterIndex)
	if next < 0 {
		maybeComplete(g, res, now)
		return
	}
	g.RoundNumber++
	g.SetterIndex = next
	g.CurrentTurnIndex = next
	g.CurrentPhase = models.PhaseSet
	g.CurrentTrick = ""
	g.AttemptedThisRound = nil
	resetDeadline(g, now)
	res.emit(IntentTurnStarted, g.ID, g.Players[next].UserID, map[string]interface{}{"phase": string(models.PhaseSet), "round": g.RoundNumber})
}

// nextAttempterIndex scans rotation order from the current index for a
// player who still owes an attempt this round.
func nextAttempterIndex(g *models.GameSession) int {
	n := len(g.Players)
	for off := 1; off <= n; off++ {
		i := (g.CurrentTurnIndex + off) % n
		p := g.Players[i]
		if p.Eliminated() || i == g.SetterIndex || hasAttempted(g, p.UserID) {
			continue
		}
		return i
	}
	return -1
}

// nextStandingAfter returns the next non-eliminated index after idx, or -1
// when idx is the only player standing.
func nextStandingAfter(g *models.GameSession, idx int) int {
	n := len(g.Players)
	for off := 1; off <= n; off++ {
		i := (idx + off) % n
		if i == idx {
			break
		}
		if !g.Players[i].Eliminated() {
			return i
		}
	}
	return -1
}

func hasAttempted(g *models.GameSession, id uuid.UUID) bool {
	for _, a := range g.AttemptedThisRound {
		if a == id {
			return true
		}
	}
	return false
}

// pendingTurn returns the most recent unjudged match turn.
func pendingTurn(g *models.GameSession) *models.Turn {
	for i := len(g.Turns) - 1; i >= 0; i-- {
		if g.Turns[i].Kind == models.TurnMatch && g.Turns[i].Result == models.ResultPending {
			return &g.Turns[i]
		}
	}
	return nil
}

// resetDeadline recomputes the advisory per-turn deadline; it is enforced
// only by the reaper's next sweep, never by blocking inside a command.
func resetDeadline(g *models.GameSession, now time.Time) {
	if g.TurnTimeoutSec <= 0 {
		g.TurnDeadlineAt = nil
		return
	}
	t := now.Add(time.Duration(g.TurnTimeoutSec) * time.Second)
	g.TurnDeadlineAt = &t
}
