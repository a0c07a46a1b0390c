// internal/game/store.go
package game

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/skatebattle/skate/internal/models"
)

// Store is the transactional session repository. Update rereads the
// authoritative record, applies fn, and persists the result atomically: two
// commands for the same game never interleave, while distinct games proceed
// fully in parallel. An error from fn aborts the write entirely.
type Store interface {
	Create(ctx context.Context, g *models.GameSession) error
	Get(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*models.GameSession) error) (*models.GameSession, error)

	// ListUnfinished returns snapshots of every active or paused session for
	// the reaper. Snapshots may be stale; the reaper re-evaluates each game
	// under a fresh Update before acting on it.
	ListUnfinished(ctx context.Context) ([]*models.GameSession, error)
}

// MemoryStore keeps sessions in process memory with one lock per game. It
// backs tests and single-node deployments; the postgres store is the
// production implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[uuid.UUID]*memoryEntry
}

type memoryEntry struct {
	mu   sync.Mutex
	sess *models.GameSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[uuid.UUID]*memoryEntry)}
}

func (s *MemoryStore) Create(ctx context.Context, g *models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[g.ID]; exists {
		return ErrGameExists
	}
	s.games[g.ID] = &memoryEntry{sess: g.Clone()}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	s.mu.RLock()
	e, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrGameNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn func(*models.GameSession) error) (*models.GameSession, error) {
	s.mu.RLock()
	e, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrGameNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// fn runs against a scratch copy; the swap below is the commit point, so
	// a failed command observably never happened.
	scratch := e.sess.Clone()
	if err := fn(scratch); err != nil {
		return nil, err
	}
	e.sess = scratch
	return scratch.Clone(), nil
}

func (s *MemoryStore) ListUnfinished(ctx context.Context) ([]*models.GameSession, error) {
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.games))
	for _, e := range s.games {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*models.GameSession
	for _, e := range entries {
		e.mu.Lock()
		if e.sess.Status == models.StatusActive || e.sess.Status == models.StatusPaused {
			out = append(out, e.sess.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}
