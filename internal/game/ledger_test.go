// internal/game/ledger_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skatebattle/skate/internal/models"
)

func TestReplayIsExactNoOp(t *testing.T) {
	g, ids := setupSession(t, 2)
	setter := ids[0]

	cmd := SubmitTrick{Header: header(g), UserID: setter, TrickName: "impossible"}
	res := mustApply(t, g, cmd)
	require.False(t, res.AlreadyProcessed)
	require.NotEmpty(t, res.Intents)
	after := g.Clone()

	// Same event id again: recognized, no state change, no intents.
	replay, err := Apply(g, cmd, testNow)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyProcessed)
	assert.Empty(t, replay.Intents)
	assert.Equal(t, after, g)
}

func TestReplayShortCircuitsEvenWhenInvalid(t *testing.T) {
	g, ids := setupSession(t, 2)
	setter, opponent := ids[0], ids[1]

	cmd := SubmitTrick{Header: header(g), UserID: setter, TrickName: "impossible"}
	mustApply(t, g, cmd)
	mustApply(t, g, PassTrick{Header: header(g), UserID: opponent})

	// The original command would now be out of turn, but the ledger hit wins
	// over any validation.
	replay, err := Apply(g, cmd, testNow)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyProcessed)
}

func TestRejectedCommandsLeaveNoLedgerEntry(t *testing.T) {
	g, ids := setupSession(t, 2)
	opponent := ids[1]

	cmd := SubmitTrick{Header: header(g), UserID: opponent, TrickName: "ollie"}
	_, err := Apply(g, cmd, testNow)
	require.Error(t, err)

	// The same event id must not read as processed: the command never ran.
	assert.False(t, seenEvent(g, cmd.EventID()))
}

func TestLedgerEvictsOldestPastCap(t *testing.T) {
	g := &models.GameSession{}
	first := uuid.New()
	recordEvent(g, first)
	for i := 0; i < models.ProcessedEventCap; i++ {
		recordEvent(g, uuid.New())
	}

	assert.Len(t, g.ProcessedEventIDs, models.ProcessedEventCap)
	assert.False(t, seenEvent(g, first), "oldest entry should have been evicted")
	last := g.ProcessedEventIDs[len(g.ProcessedEventIDs)-1]
	assert.True(t, seenEvent(g, last))
}

func TestDeterministicEventIDStability(t *testing.T) {
	actor, gid := uuid.New(), uuid.New()
	a := DeterministicEventID("vote", actor, gid, "turn-1|landed")
	b := DeterministicEventID("vote", actor, gid, "turn-1|landed")
	c := DeterministicEventID("vote", actor, gid, "turn-1|missed")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
