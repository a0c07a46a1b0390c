// internal/reaper/reaper.go
//
// The reaper is the only component that enforces the advisory wall-clock
// deadlines sessions carry. Each sweep runs three independent passes; every
// game it touches is re-evaluated under a fresh transaction, so a game that
// no longer meets the expiry predicate is a safe no-op.
package reaper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skatebattle/skate/internal/engine"
	"github.com/skatebattle/skate/internal/game"
	"github.com/skatebattle/skate/internal/models"
)

// Options tune the sweep predicates.
type Options struct {
	// WarningWindow is how far before the turn deadline reminders begin.
	WarningWindow time.Duration
	// HardAgeCap forfeits games that have seen no update at all for this long,
	// regardless of per-turn deadlines.
	HardAgeCap time.Duration
}

// Report counts what one sweep actually did; per-item failures are logged
// and excluded from the counts.
type Report struct {
	Forfeited int
	Warned    int
	Stalled   int
}

type Reaper struct {
	store     game.Store
	eng       *engine.Engine
	sink      engine.IntentSink
	cooldowns *CooldownStore
	log       *logrus.Logger
	opts      Options
	now       func() time.Time
}

func New(store game.Store, eng *engine.Engine, sink engine.IntentSink, cooldowns *CooldownStore, log *logrus.Logger, opts Options) *Reaper {
	return &Reaper{
		store:     store,
		eng:       eng,
		sink:      sink,
		cooldowns: cooldowns,
		log:       log,
		opts:      opts,
		now:       time.Now,
	}
}

// WithClock overrides the sweep clock for tests.
func (r *Reaper) WithClock(now func() time.Time) *Reaper {
	r.now = now
	return r
}

// Run sweeps on the given interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := r.Sweep(ctx)
			if report.Forfeited+report.Warned+report.Stalled > 0 {
				r.log.WithFields(logrus.Fields{
					"forfeited": report.Forfeited,
					"warned":    report.Warned,
					"stalled":   report.Stalled,
				}).Info("reaper sweep completed")
			}
		}
	}
}

// Sweep runs the three passes over a single snapshot of unfinished games.
// One game's failure is logged with its id and never blocks the rest.
func (r *Reaper) Sweep(ctx context.Context) Report {
	var report Report
	sessions, err := r.store.ListUnfinished(ctx)
	if err != nil {
		r.log.WithError(err).Error("reaper failed to list games")
		return report
	}
	now := r.now()
	report.Forfeited = r.forfeitExpiredGames(ctx, sessions, now)
	report.Warned = r.notifyDeadlineWarnings(ctx, sessions, now)
	report.Stalled = r.forfeitStalledGames(ctx, sessions, now)
	return report
}

// forfeitExpiredGames forfeits the current player of every active game whose
// per-turn deadline has passed, each in its own transaction.
func (r *Reaper) forfeitExpiredGames(ctx context.Context, sessions []*models.GameSession, now time.Time) int {
	count := 0
	for _, sess := range sessions {
		if sess.Status != models.StatusActive || sess.TurnDeadlineAt == nil || !now.After(*sess.TurnDeadlineAt) {
			continue
		}
		current := sess.CurrentPlayer()
		if current == nil {
			r.log.WithField("game_id", sess.ID).Warn("expired game has no current player, skipping")
			continue
		}
		// The deadline pins the event id: re-sweeping the same expired turn
		// replays idempotently instead of forfeiting twice.
		cmd := game.Forfeit{
			Header: game.Header{
				Event: game.DeterministicEventID("turn_timeout", current.UserID, sess.ID, sess.TurnDeadlineAt.UTC().Format(time.RFC3339Nano)),
				Game:  sess.ID,
			},
			UserID: current.UserID,
			Reason: game.ForfeitTurnTimeout,
		}
		if r.execute(ctx, sess.ID, cmd, "turn deadline forfeit") {
			count++
		}
	}
	return count
}

// notifyDeadlineWarnings emits at most one debounced reminder per game while
// it is inside the warning window. Games without deadlines are skipped.
func (r *Reaper) notifyDeadlineWarnings(ctx context.Context, sessions []*models.GameSession, now time.Time) int {
	count := 0
	if r.sink == nil {
		return count
	}
	for _, sess := range sessions {
		if sess.Status != models.StatusActive || sess.TurnDeadlineAt == nil {
			continue
		}
		remaining := sess.TurnDeadlineAt.Sub(now)
		if remaining <= 0 || remaining > r.opts.WarningWindow {
			continue
		}
		if !r.cooldowns.Allow(sess.ID, now) {
			continue
		}
		current := sess.CurrentPlayer()
		if current == nil {
			continue
		}
		intent := game.Intent{
			Type:     game.IntentDeadlineWarning,
			GameID:   sess.ID,
			PlayerID: current.UserID,
			Payload: map[string]interface{}{
				"deadline_at": sess.TurnDeadlineAt.UTC().Format(time.RFC3339),
			},
		}
		if err := r.sink.Publish(ctx, []game.Intent{intent}); err != nil {
			// Give the cooldown back so the next sweep retries instead of
			// staying silent for the whole window.
			r.cooldowns.Forget(sess.ID)
			r.log.WithError(err).WithField("game_id", sess.ID).Warn("failed to enqueue deadline warning")
			continue
		}
		count++
	}
	return count
}

// forfeitStalledGames closes out games that have seen no update for the hard
// age cap, paused or not. The concession lands on a still-disconnected
// player if there is one, otherwise on the losing side (most letters, ties
// to the current player). Games with no attributable player are skipped
// defensively rather than treated as errors.
func (r *Reaper) forfeitStalledGames(ctx context.Context, sessions []*models.GameSession, now time.Time) int {
	count := 0
	for _, sess := range sessions {
		if now.Sub(sess.UpdatedAt) <= r.opts.HardAgeCap {
			continue
		}
		target, reason := stalledTarget(sess)
		if target == uuid.Nil {
			r.log.WithField("game_id", sess.ID).Debug("stalled game has no attributable player, skipping")
			continue
		}
		cmd := game.Forfeit{
			Header: game.Header{
				Event: game.DeterministicEventID("stalled", target, sess.ID, sess.UpdatedAt.UTC().Format(time.RFC3339Nano)),
				Game:  sess.ID,
			},
			UserID: target,
			Reason: reason,
		}
		if r.execute(ctx, sess.ID, cmd, "stalled game forfeit") {
			count++
		}
	}
	return count
}

func stalledTarget(sess *models.GameSession) (uuid.UUID, game.ForfeitReason) {
	for i := range sess.Players {
		p := sess.Players[i]
		if !p.Connected && !p.Eliminated() {
			return p.UserID, game.ForfeitDisconnectTimeout
		}
	}
	var target uuid.UUID
	most := -1
	for i := range sess.Players {
		p := sess.Players[i]
		if p.Eliminated() {
			continue
		}
		if p.LetterCount > most {
			most = p.LetterCount
			target = p.UserID
		}
	}
	if most >= 0 {
		if current := sess.CurrentPlayer(); current != nil && current.LetterCount == most {
			target = current.UserID
		}
	}
	return target, game.ForfeitTurnTimeout
}

// execute applies a reaper command and classifies the outcome: a rejection
// means the game moved on since the snapshot and the pass is a no-op there.
func (r *Reaper) execute(ctx context.Context, gameID uuid.UUID, cmd game.Command, what string) bool {
	resp := r.eng.Execute(ctx, cmd)
	switch {
	case resp.Success && !resp.AlreadyProcessed:
		return true
	case resp.Success:
		return false // replayed from a prior sweep
	case resp.ErrorCode == engine.CodeTransient:
		r.log.WithFields(logrus.Fields{"game_id": gameID, "error": resp.Error}).Errorf("%s failed", what)
		return false
	default:
		// State-conflict under fresh state: already completed, player gone.
		r.log.WithFields(logrus.Fields{"game_id": gameID, "reason": resp.ErrorCode}).Debugf("%s skipped", what)
		return false
	}
}
