// internal/engine/engine.go
//
// The engine is the only entry point for mutating a session: it wraps the
// pure state machine in the repository transaction, applies the idempotency
// ledger, and enqueues the transition's notification intents after commit.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skatebattle/skate/internal/game"
	"github.com/skatebattle/skate/internal/models"
)

// IntentSink receives notification intents after a successful commit.
// Delivery itself belongs to an external collaborator.
type IntentSink interface {
	Publish(ctx context.Context, intents []game.Intent) error
}

// Response is the uniform command result shape.
type Response struct {
	Success          bool                `json:"success"`
	AlreadyProcessed bool                `json:"already_processed,omitempty"`
	Error            string              `json:"error,omitempty"`
	ErrorCode        string              `json:"error_code,omitempty"`
	Game             *models.GameSession `json:"game,omitempty"`
}

// Error codes outside the machine's rejection codes.
const (
	CodeNotFound  = "not_found"
	CodeTransient = "transient"
)

// Engine executes validated commands against the session store.
type Engine struct {
	store game.Store
	sink  IntentSink
	log   *logrus.Logger

	// now is swappable for tests.
	now func() time.Time

	// turnTimeoutSec seeds new sessions' per-turn deadline.
	turnTimeoutSec int
}

func New(store game.Store, sink IntentSink, log *logrus.Logger, turnTimeoutSec int) *Engine {
	return &Engine{
		store:          store,
		sink:           sink,
		log:            log,
		now:            time.Now,
		turnTimeoutSec: turnTimeoutSec,
	}
}

// WithClock overrides the engine clock; used by tests and the reaper's
// deterministic sweeps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Execute applies one command. The ledger check and the state transition run
// inside a single transactional unit, so a replayed command observes the
// committed ledger entry and returns AlreadyProcessed without side effects.
func (e *Engine) Execute(ctx context.Context, cmd game.Command) Response {
	now := e.now()

	if create, ok := cmd.(game.CreateGame); ok {
		return e.executeCreate(ctx, create, now)
	}

	var res *game.Result
	sess, err := e.store.Update(ctx, cmd.GameID(), func(g *models.GameSession) error {
		var applyErr error
		res, applyErr = game.Apply(g, cmd, now)
		return applyErr
	})
	if err != nil {
		return e.failure(err)
	}
	if res.AlreadyProcessed {
		return Response{Success: true, AlreadyProcessed: true, Game: sess}
	}
	e.publish(ctx, res.Intents)
	return Response{Success: true, Game: sess}
}

// executeCreate inserts a fresh session. The session id is derived from the
// command, so a replayed create collides with the existing row and is
// reported as already processed instead of spawning a duplicate game.
func (e *Engine) executeCreate(ctx context.Context, cmd game.CreateGame, now time.Time) Response {
	sess := game.NewSession(cmd, now, e.turnTimeoutSec)
	err := e.store.Create(ctx, sess)
	if errors.Is(err, game.ErrGameExists) {
		existing, getErr := e.store.Get(ctx, sess.ID)
		if getErr != nil {
			return e.failure(getErr)
		}
		return Response{Success: true, AlreadyProcessed: true, Game: existing}
	}
	if err != nil {
		return e.failure(err)
	}
	e.publish(ctx, []game.Intent{{
		Type:     game.IntentGameCreated,
		GameID:   sess.ID,
		PlayerID: cmd.CreatorID,
	}})
	return Response{Success: true, Game: sess}
}

func (e *Engine) publish(ctx context.Context, intents []game.Intent) {
	if e.sink == nil || len(intents) == 0 {
		return
	}
	if err := e.sink.Publish(ctx, intents); err != nil {
		// The state change is committed; losing a notification is preferable
		// to failing the command.
		e.log.WithError(err).Warn("failed to enqueue notification intents")
	}
}

func (e *Engine) failure(err error) Response {
	if rej, ok := game.IsRejection(err); ok {
		return Response{Error: rej.Message, ErrorCode: string(rej.Code)}
	}
	if errors.Is(err, game.ErrGameNotFound) {
		return Response{Error: "game not found", ErrorCode: CodeNotFound}
	}
	// Anything else is a storage-layer fault; safe for the caller to retry.
	e.log.WithError(err).Error("transient storage error")
	return Response{Error: "temporary storage error, retry", ErrorCode: CodeTransient}
}
