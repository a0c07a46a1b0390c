// internal/reaper/cooldown.go
package reaper

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CooldownStore debounces per-game reminders across sweeps. It is an
// explicit dependency of the reaper, keyed by game id with a fixed TTL,
// rather than a hidden process-wide map.
type CooldownStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uuid.UUID]time.Time
}

func NewCooldownStore(ttl time.Duration) *CooldownStore {
	return &CooldownStore{ttl: ttl, entries: make(map[uuid.UUID]time.Time)}
}

// Allow reports whether the game is outside its cooldown window and, if so,
// starts a new window. Expired entries are pruned opportunistically.
func (c *CooldownStore) Allow(id uuid.UUID, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, at := range c.entries {
		if now.Sub(at) >= c.ttl {
			delete(c.entries, k)
		}
	}
	if at, ok := c.entries[id]; ok && now.Sub(at) < c.ttl {
		return false
	}
	c.entries[id] = now
	return true
}

// Forget releases a game's window early, re-arming its reminder. Used when
// the side effect the Allow call granted never actually happened.
func (c *CooldownStore) Forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
