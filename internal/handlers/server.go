// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/skatebattle/skate/internal/engine"
	"github.com/skatebattle/skate/internal/game"
)

// Server holds the command engine and everything the HTTP surface needs to
// dispatch into it.
type Server struct {
	Engine *engine.Engine
	Store  game.Store
	Logger *logrus.Logger

	// ResolverKeyHash is the argon2id hash the external dispute resolver's
	// shared key is compared against. Empty disables the resolve endpoint.
	ResolverKeyHash string

	Hub *WatchHub
}

func NewServer(eng *engine.Engine, store game.Store, logger *logrus.Logger, resolverKeyHash string) *Server {
	return &Server{
		Engine:          eng,
		Store:           store,
		Logger:          logger,
		ResolverKeyHash: resolverKeyHash,
		Hub:             NewWatchHub(logger),
	}
}

// Register wires every game route onto the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /games/create", s.CreateGameHandler)
	mux.HandleFunc("POST /games/join", s.JoinGameHandler)
	mux.HandleFunc("POST /games/trick", s.SubmitTrickHandler)
	mux.HandleFunc("POST /games/pass", s.PassTrickHandler)
	mux.HandleFunc("POST /games/vote", s.CastVoteHandler)
	mux.HandleFunc("POST /games/forfeit", s.ForfeitHandler)
	mux.HandleFunc("POST /games/dispute", s.FileDisputeHandler)
	mux.HandleFunc("POST /games/dispute/resolve", s.ResolveDisputeHandler)
	mux.HandleFunc("GET /games/{id}", s.GetGameHandler)
	mux.HandleFunc("GET /games/watch/{id}", s.WatchHandler)
	mux.HandleFunc("POST /session/guest", s.GuestSessionHandler)
}
