// internal/handlers/watch_ws_test.go
package handlers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// TestWatchHubSeatRefcount exercises the per-seat socket counting that decides
// when the watch surface issues Reconnect and Disconnect: only the first open
// socket and the last closed one for a seated player cross zero.
func TestWatchHubSeatRefcount(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	hub := NewWatchHub(logger)
	gameID := uuid.New()
	skater := uuid.New()

	first := &watcher{skater: skater, seated: true}
	second := &watcher{skater: skater, seated: true}

	assert.Equal(t, 1, hub.add(gameID, first), "first seated socket crosses zero")
	assert.Equal(t, 2, hub.add(gameID, second), "a second tab must not re-trigger a reconnect")

	assert.Equal(t, 1, hub.remove(gameID, second), "closing one of two sockets leaves the seat held")
	assert.Equal(t, 0, hub.remove(gameID, first), "the last socket closing releases the seat")

	// A fresh socket after full release starts a new cycle.
	third := &watcher{skater: skater, seated: true}
	assert.Equal(t, 1, hub.add(gameID, third))
	assert.Equal(t, 0, hub.remove(gameID, third))
}

func TestWatchHubSpectatorsNeverCount(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	hub := NewWatchHub(logger)
	gameID := uuid.New()

	spec := &watcher{skater: uuid.New(), seated: false}
	assert.Equal(t, 0, hub.add(gameID, spec))
	assert.Equal(t, 0, hub.remove(gameID, spec))

	// Removing a socket that was never added must not underflow the seat.
	stray := &watcher{skater: uuid.New(), seated: true}
	assert.Equal(t, 0, hub.remove(gameID, stray))
}
