// internal/game/store_test.go
package game

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skatebattle/skate/internal/models"
)

func storedSession(t *testing.T, s *MemoryStore) *models.GameSession {
	t.Helper()
	sess := &models.GameSession{
		ID:     uuid.New(),
		Status: models.StatusActive,
		Players: []models.Player{
			{UserID: uuid.New(), Connected: true},
		},
	}
	require.NoError(t, s.Create(context.Background(), sess))
	return sess
}

func TestMemoryStoreCreateConflict(t *testing.T) {
	s := NewMemoryStore()
	sess := storedSession(t, s)
	err := s.Create(context.Background(), sess)
	assert.ErrorIs(t, err, ErrGameExists)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	sess := storedSession(t, s)

	got, err := s.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	got.Players[0].LetterCount = 5

	again, err := s.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Players[0].LetterCount, "mutating a snapshot must not leak into the store")
}

func TestMemoryStoreUpdateAbortsOnError(t *testing.T) {
	s := NewMemoryStore()
	sess := storedSession(t, s)

	boom := errors.New("boom")
	_, err := s.Update(context.Background(), sess.ID, func(g *models.GameSession) error {
		g.Players[0].LetterCount = 3
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Players[0].LetterCount, "a failed update must not commit partial writes")
}

func TestMemoryStoreUnknownGame(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = s.Update(context.Background(), uuid.New(), func(*models.GameSession) error { return nil })
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestMemoryStoreListUnfinished(t *testing.T) {
	s := NewMemoryStore()
	active := storedSession(t, s)

	done := &models.GameSession{ID: uuid.New(), Status: models.StatusCompleted}
	require.NoError(t, s.Create(context.Background(), done))

	listed, err := s.ListUnfinished(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, active.ID, listed[0].ID)
}
