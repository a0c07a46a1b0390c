// internal/handlers/commands_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skatebattle/skate/internal/auth"
	"github.com/skatebattle/skate/internal/engine"
	"github.com/skatebattle/skate/internal/game"
	"github.com/skatebattle/skate/internal/models"
)

var handlerNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, game.Store) {
	t.Helper()
	require.NoError(t, auth.Init())
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	store := game.NewMemoryStore()
	eng := engine.New(store, nil, logger, 3600).WithClock(func() time.Time { return handlerNow })
	return NewServer(eng, store, logger, ""), store
}

// seedActiveThreeWay drives a full three-player session into the attempt
// phase and returns the server, game id, and the current attempter.
func seedActiveThreeWay(t *testing.T) (*Server, uuid.UUID, uuid.UUID) {
	t.Helper()
	s, _ := newTestServer(t)
	ctx := context.Background()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	gameID := uuid.New()
	resp := s.Engine.Execute(ctx, game.CreateGame{
		Header:     game.Header{Event: uuid.New(), Game: gameID},
		SpotID:     uuid.New(),
		CreatorID:  ids[0],
		MaxPlayers: 3,
	})
	require.True(t, resp.Success)
	for _, id := range ids[1:] {
		resp = s.Engine.Execute(ctx, game.JoinGame{Header: game.Header{Event: uuid.New(), Game: gameID}, UserID: id})
		require.True(t, resp.Success)
	}
	resp = s.Engine.Execute(ctx, game.SubmitTrick{
		Header:    game.Header{Event: uuid.New(), Game: gameID},
		UserID:    ids[0],
		TrickName: "kickflip",
	})
	require.True(t, resp.Success)
	require.Equal(t, models.PhaseAttempt, resp.Game.CurrentPhase)
	return s, gameID, resp.Game.CurrentPlayer().UserID
}

func authedRequest(t *testing.T, skaterID uuid.UUID, body string) *http.Request {
	t.Helper()
	token, err := auth.CreateToken(skaterID.String())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/games/pass", bytes.NewBufferString(body))
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	return req
}

// TestPassRetryReplaysWithoutEventID retries a pass whose first response was
// lost. With no client-supplied event id the surface derives one from the
// round, so the retry reads as already processed instead of a turn conflict.
func TestPassRetryReplaysWithoutEventID(t *testing.T) {
	s, gameID, attempter := seedActiveThreeWay(t)
	body := fmt.Sprintf(`{"game_id":%q}`, gameID)

	rr := httptest.NewRecorder()
	s.PassTrickHandler(rr, authedRequest(t, attempter, body))
	require.Equal(t, http.StatusOK, rr.Code)
	var first engine.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))
	require.True(t, first.Success)
	require.False(t, first.AlreadyProcessed)
	require.Equal(t, "S", first.Game.PlayerByID(attempter).Letters())

	rr = httptest.NewRecorder()
	s.PassTrickHandler(rr, authedRequest(t, attempter, body))
	require.Equal(t, http.StatusOK, rr.Code)
	var second engine.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	assert.True(t, second.Success)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, "S", second.Game.PlayerByID(attempter).Letters(), "the retry must not assign a second letter")
}

func TestRoundEventIDDerivation(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	sess := &models.GameSession{
		ID:           uuid.New(),
		Status:       models.StatusActive,
		CurrentPhase: models.PhaseAttempt,
		RoundNumber:  3,
		Players:      []models.Player{{UserID: uuid.New(), Connected: true}},
	}
	require.NoError(t, store.Create(ctx, sess))
	skater := sess.Players[0].UserID

	passID := s.roundEventID(ctx, "pass", skater, sess.ID.String())
	assert.Equal(t, passID(), passID(), "same player, phase, and round must derive the same id")

	submitID := s.roundEventID(ctx, "submit", skater, sess.ID.String())
	assert.NotEqual(t, passID(), submitID(), "distinct command kinds must not collide")

	otherID := s.roundEventID(ctx, "pass", uuid.New(), sess.ID.String())
	assert.NotEqual(t, passID(), otherID(), "distinct actors must not collide")

	// Unknown sessions fall back to random ids; the engine reports not-found.
	unknown := s.roundEventID(ctx, "pass", skater, uuid.NewString())
	assert.NotEqual(t, unknown(), unknown())
}
