// internal/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skatebattle/skate/internal/game"
	"github.com/skatebattle/skate/internal/models"
)

var engineNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// mockSink collects published intents instead of pushing them to Redis.
type mockSink struct {
	mu      sync.Mutex
	intents []game.Intent
	err     error
}

func (m *mockSink) Publish(ctx context.Context, intents []game.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.intents = append(m.intents, intents...)
	return nil
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.intents)
}

func (m *mockSink) types() []game.IntentType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.IntentType
	for _, in := range m.intents {
		out = append(out, in.Type)
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *mockSink, game.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	sink := &mockSink{}
	store := game.NewMemoryStore()
	eng := New(store, sink, logger, 3600).WithClock(func() time.Time { return engineNow })
	return eng, sink, store
}

func createCmd(creator uuid.UUID) game.CreateGame {
	event := uuid.New()
	return game.CreateGame{
		Header:     game.Header{Event: event, Game: game.DeterministicEventID("create", creator, uuid.Nil, event.String())},
		SpotID:     uuid.New(),
		CreatorID:  creator,
		MaxPlayers: 2,
	}
}

func TestCreateAndReplay(t *testing.T) {
	eng, sink, _ := newTestEngine(t)
	ctx := context.Background()

	cmd := createCmd(uuid.New())
	resp := eng.Execute(ctx, cmd)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Game)
	assert.Equal(t, models.StatusWaiting, resp.Game.Status)
	assert.Contains(t, sink.types(), game.IntentGameCreated)

	published := sink.count()
	replay := eng.Execute(ctx, cmd)
	require.True(t, replay.Success)
	assert.True(t, replay.AlreadyProcessed)
	assert.Equal(t, cmd.Game, replay.Game.ID)
	assert.Equal(t, published, sink.count(), "a replayed create must not re-publish")
}

func TestJoinPublishesAfterCommit(t *testing.T) {
	eng, sink, store := newTestEngine(t)
	ctx := context.Background()

	creator := uuid.New()
	gameID := eng.Execute(ctx, createCmd(creator)).Game.ID

	join := game.JoinGame{Header: game.Header{Event: uuid.New(), Game: gameID}, UserID: uuid.New()}
	resp := eng.Execute(ctx, join)
	require.True(t, resp.Success)
	assert.Equal(t, models.StatusActive, resp.Game.Status)
	assert.Contains(t, sink.types(), game.IntentGameStarted)

	// State visible through the store matches what the response reported.
	stored, err := store.Get(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)

	published := sink.count()
	replay := eng.Execute(ctx, join)
	require.True(t, replay.Success)
	assert.True(t, replay.AlreadyProcessed)
	assert.Equal(t, published, sink.count(), "replays must not re-fire intents")
}

func TestRejectionMapsToErrorCode(t *testing.T) {
	eng, sink, store := newTestEngine(t)
	ctx := context.Background()

	creator := uuid.New()
	gameID := eng.Execute(ctx, createCmd(creator)).Game.ID
	published := sink.count()

	// Creator joining their own waiting game is a state conflict.
	resp := eng.Execute(ctx, game.JoinGame{Header: game.Header{Event: uuid.New(), Game: gameID}, UserID: creator})
	assert.False(t, resp.Success)
	assert.Equal(t, string(game.CodeAlreadyInGame), resp.ErrorCode)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, published, sink.count(), "rejected commands publish nothing")

	// The rejection left no trace in storage.
	stored, err := store.Get(ctx, gameID)
	require.NoError(t, err)
	assert.Len(t, stored.Players, 1)
}

func TestUnknownGameIsNotFound(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	resp := eng.Execute(context.Background(), game.PassTrick{
		Header: game.Header{Event: uuid.New(), Game: uuid.New()},
		UserID: uuid.New(),
	})
	assert.False(t, resp.Success)
	assert.Equal(t, CodeNotFound, resp.ErrorCode)
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	eng, sink, _ := newTestEngine(t)
	sink.err = errors.New("redis down")

	resp := eng.Execute(context.Background(), createCmd(uuid.New()))
	assert.True(t, resp.Success, "the committed state change wins over notification delivery")
}

func TestNilSinkIsSafe(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	eng := New(game.NewMemoryStore(), nil, logger, 3600)

	resp := eng.Execute(context.Background(), createCmd(uuid.New()))
	assert.True(t, resp.Success)
}
