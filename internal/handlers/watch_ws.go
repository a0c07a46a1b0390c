// internal/handlers/watch_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skatebattle/skate/internal/game"
	"github.com/skatebattle/skate/internal/middleware"
	"github.com/skatebattle/skate/internal/models"
)

const watchWriteTimeout = 10 * time.Second

// watchMessage is the envelope pushed to watch clients.
type watchMessage struct {
	Type string              `json:"type"`
	Game *models.GameSession `json:"game,omitempty"`
}

type watcher struct {
	conn   *websocket.Conn
	skater uuid.UUID
	seated bool
	remote string
}

// WatchHub fans session snapshots out to websocket watchers, keyed by game.
// For seated players it also refcounts open sockets per (game, skater), so
// presence follows the player's last socket rather than any single tab.
type WatchHub struct {
	mu       sync.Mutex
	watchers map[uuid.UUID]map[*watcher]struct{}
	seats    map[uuid.UUID]map[uuid.UUID]int
	log      *logrus.Logger
}

func NewWatchHub(log *logrus.Logger) *WatchHub {
	return &WatchHub{
		watchers: make(map[uuid.UUID]map[*watcher]struct{}),
		seats:    make(map[uuid.UUID]map[uuid.UUID]int),
		log:      log,
	}
}

// add registers the watcher and returns how many sockets its seated player
// now holds for the game; spectators always return 0.
func (h *WatchHub) add(gameID uuid.UUID, w *watcher) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[gameID]
	if !ok {
		set = make(map[*watcher]struct{})
		h.watchers[gameID] = set
	}
	set[w] = struct{}{}

	if !w.seated {
		return 0
	}
	m, ok := h.seats[gameID]
	if !ok {
		m = make(map[uuid.UUID]int)
		h.seats[gameID] = m
	}
	m[w.skater]++
	return m[w.skater]
}

// remove unregisters the watcher and returns how many sockets its seated
// player still holds for the game; spectators always return 0.
func (h *WatchHub) remove(gameID uuid.UUID, w *watcher) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.watchers[gameID]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(h.watchers, gameID)
		}
	}

	if !w.seated {
		return 0
	}
	m, ok := h.seats[gameID]
	if !ok {
		return 0
	}
	m[w.skater]--
	n := m[w.skater]
	if n <= 0 {
		n = 0
		delete(m, w.skater)
		if len(m) == 0 {
			delete(h.seats, gameID)
		}
	}
	return n
}

// Broadcast pushes a snapshot to everyone watching the session. Slow or dead
// connections are dropped; their read loop notices the close and cleans up.
func (h *WatchHub) Broadcast(sess *models.GameSession) {
	h.mu.Lock()
	targets := make([]*watcher, 0, len(h.watchers[sess.ID]))
	for w := range h.watchers[sess.ID] {
		targets = append(targets, w)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}
	payload, err := json.Marshal(watchMessage{Type: "game_state", Game: sess})
	if err != nil {
		h.log.Errorf("failed to marshal game %s snapshot: %v", sess.ID, err)
		return
	}
	for _, w := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), watchWriteTimeout)
		if err := w.conn.Write(ctx, websocket.MessageText, payload); err != nil {
			h.log.Debugf("dropping watcher %s of game %s: %v", w.remote, sess.ID, err)
			w.conn.Close(websocket.StatusPolicyViolation, "write failed")
		}
		cancel()
	}
}

// WatchHandler upgrades to a websocket and streams session snapshots. For a
// seated player the connection doubles as their presence signal: their first
// open socket issues a Reconnect command and their last socket closing issues
// a Disconnect, so an active session pauses only when the player is fully
// gone, not when one of several tabs closes.
func (s *Server) WatchHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	sess, err := s.Store.Get(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load game", http.StatusInternalServerError)
		return
	}

	skaterID, err := EnsureSkater(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"watch"},
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")
	middleware.LogWatchConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	wt := &watcher{
		conn:   c,
		skater: skaterID,
		seated: sess.PlayerByID(skaterID) != nil,
		remote: r.RemoteAddr,
	}
	if s.Hub.add(gameID, wt) == 1 {
		resp := s.Engine.Execute(r.Context(), game.Reconnect{
			Header: game.Header{Event: uuid.New(), Game: gameID},
			UserID: skaterID,
		})
		s.afterCommand(resp)
	}

	// Initial snapshot so the client renders without waiting for a command.
	if fresh, err := s.Store.Get(r.Context(), gameID); err == nil {
		s.Hub.Broadcast(fresh)
	}

	// The read loop only drains pings and detects close; commands arrive over
	// the HTTP surface.
	var readErr error
	for {
		if _, _, readErr = c.Read(r.Context()); readErr != nil {
			break
		}
	}
	middleware.LogWatchDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, readErr)

	if s.Hub.remove(gameID, wt) == 0 && wt.seated {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp := s.Engine.Execute(ctx, game.Disconnect{
			Header: game.Header{Event: uuid.New(), Game: gameID},
			UserID: skaterID,
		})
		s.afterCommand(resp)
	}
	c.Close(websocket.StatusNormalClosure, "bye")
}
