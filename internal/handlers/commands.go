// internal/handlers/commands.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/skatebattle/skate/internal/auth"
	"github.com/skatebattle/skate/internal/engine"
	"github.com/skatebattle/skate/internal/game"
	"github.com/skatebattle/skate/internal/models"
)

// commandEnvelope carries the fields every command request shares. EventID is
// optional: clients that retry supply their own so the replay dedupes; when
// absent the surface derives or mints one.
type commandEnvelope struct {
	EventID string `json:"event_id,omitempty"`
	GameID  string `json:"game_id"`
}

func (c commandEnvelope) header(fallback func() uuid.UUID) (game.Header, error) {
	var h game.Header
	if c.GameID != "" {
		gid, err := uuid.Parse(c.GameID)
		if err != nil {
			return h, errors.New("invalid game_id")
		}
		h.Game = gid
	}
	if c.EventID != "" {
		eid, err := uuid.Parse(c.EventID)
		if err != nil {
			return h, errors.New("invalid event_id")
		}
		h.Event = eid
	} else {
		h.Event = fallback()
	}
	return h, nil
}

// roundEventID derives the fallback event id for commands a player issues at
// most once per phase of a round (submit, pass), so a retried request whose
// first response was lost replays as already-processed instead of surfacing a
// turn conflict. Falls back to a random id when the session cannot be read;
// the engine then reports not-found on its own.
func (s *Server) roundEventID(ctx context.Context, kind string, skaterID uuid.UUID, rawGameID string) func() uuid.UUID {
	return func() uuid.UUID {
		gid, err := uuid.Parse(rawGameID)
		if err != nil {
			return uuid.New()
		}
		sess, err := s.Store.Get(ctx, gid)
		if err != nil {
			return uuid.New()
		}
		seq := string(sess.CurrentPhase) + "|" + strconv.Itoa(sess.RoundNumber)
		return game.DeterministicEventID(kind, skaterID, gid, seq)
	}
}

// writeResponse maps the engine's uniform response onto HTTP statuses:
// machine rejections are conflicts, missing sessions 404, storage trouble 503.
func (s *Server) writeResponse(w http.ResponseWriter, resp engine.Response) {
	status := http.StatusOK
	if !resp.Success {
		switch resp.ErrorCode {
		case engine.CodeNotFound:
			status = http.StatusNotFound
		case engine.CodeTransient:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusConflict
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.Logger.Errorf("failed to encode response: %v", err)
	}
}

type createGameRequest struct {
	EventID    string `json:"event_id,omitempty"`
	SpotID     string `json:"spot_id"`
	MaxPlayers int    `json:"max_players,omitempty"`
}

// CreateGameHandler opens a session with the caller seated as creator. The
// session id is derived from the event id, so a retried create lands on the
// same game instead of a duplicate.
func (s *Server) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	skaterID, err := EnsureSkater(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	spotID, err := uuid.Parse(req.SpotID)
	if err != nil {
		http.Error(w, "invalid spot_id", http.StatusBadRequest)
		return
	}

	eventID := uuid.New()
	if req.EventID != "" {
		eventID, err = uuid.Parse(req.EventID)
		if err != nil {
			http.Error(w, "invalid event_id", http.StatusBadRequest)
			return
		}
	}
	gameID := game.DeterministicEventID("create", skaterID, uuid.Nil, eventID.String())

	resp := s.Engine.Execute(r.Context(), game.CreateGame{
		Header:     game.Header{Event: eventID, Game: gameID},
		SpotID:     spotID,
		CreatorID:  skaterID,
		MaxPlayers: req.MaxPlayers,
	})
	s.afterCommand(resp)
	s.writeResponse(w, resp)
}

// JoinGameHandler seats the caller in a waiting session.
func (s *Server) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	skaterID, err := EnsureSkater(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req commandEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	h, err := req.header(uuid.New)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := s.Engine.Execute(r.Context(), game.JoinGame{Header: h, UserID: skaterID})
	s.afterCommand(resp)
	s.writeResponse(w, resp)
}

type submitTrickRequest struct {
	commandEnvelope
	TrickName string       `json:"trick_name"`
	Clip      *models.Clip `json:"clip,omitempty"`
}

// SubmitTrickHandler covers both sides of a round: the setter naming a trick,
// and an attempter submitting a landed match (with or without a clip for
// review).
func (s *Server) SubmitTrickHandler(w http.ResponseWriter, r *http.Request) {
	skaterID, err := EnsureSkater(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req submitTrickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validateTrickName(req.TrickName); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateClip(req.Clip); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h, err := req.header(s.roundEventID(r.Context(), "submit", skaterID, req.GameID))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := s.Engine.Execute(r.Context(), game.SubmitTrick{
		Header:    h,
		UserID:    skaterID,
		TrickName: req.TrickName,
		Clip:      req.Clip,
	})
	s.afterCommand(resp)
	s.writeResponse(w, resp)
}

// PassTrickHandler concedes the caller's attempt, earning the next letter.
func (s *Server) PassTrickHandler(w http.ResponseWriter, r *http.Request) {
	skaterID, err := EnsureSkater(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req commandEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	h, err := req.header(s.roundEventID(r.Context(), "pass", skaterID, req.GameID))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := s.Engine.Execute(r.Context(), game.PassTrick{Header: h, UserID: skaterID})
	s.afterCommand(resp)
	s.writeResponse(w, resp)
}

type castVoteRequest struct {
	commandEnvelope
	TurnID string `json:"turn_id"`
	Vote   string `json:"vote"`
}

// CastVoteHandler records one side's judgment of the turn under review. The
// event id is derived from (voter, game, turn, vote), so a retried vote
// replays instead of double-counting.
func (s *Server) CastVoteHandler(w http.ResponseWriter, r *http.Request) {
	skaterID, err := EnsureSkater(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	vote := models.TurnResult(req.Vote)
	if vote != models.ResultLanded && vote != models.ResultMissed {
		http.Error(w, "vote must be landed or missed", http.StatusBadRequest)
		return
	}
	h, err := req.header(func() uuid.UUID {
		return game.DeterministicEventID("vote", skaterID, uuid.Nil, req.TurnID+"|"+req.Vote)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := s.Engine.Execute(r.Context(), game.CastVote{Header: h, UserID: skaterID, Vote: vote})
	s.afterCommand(resp)
	s.writeResponse(w, resp)
}

type forfeitRequest struct {
	commandEnvelope
}

// ForfeitHandler concedes the whole game for the caller.
func (s *Server) ForfeitHandler(w http.ResponseWriter, r *http.Request) {
	skaterID, err := EnsureSkater(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req forfeitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	h, err := req.header(uuid.New)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := s.Engine.Execute(r.Context(), game.Forfeit{
		Header: h,
		UserID: skaterID,
		Reason: game.ForfeitVoluntary,
	})
	s.afterCommand(resp)
	s.writeResponse(w, resp)
}

type fileDisputeRequest struct {
	commandEnvelope
	TurnID string `json:"turn_id"`
}

// FileDisputeHandler opens an appeal against a missed call on the caller's
// own trick. The event id is derived from the turn, so retries dedupe.
func (s *Server) FileDisputeHandler(w http.ResponseWriter, r *http.Request) {
	skaterID, err := EnsureSkater(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req fileDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	turnID, err := uuid.Parse(req.TurnID)
	if err != nil {
		http.Error(w, "invalid turn_id", http.StatusBadRequest)
		return
	}
	h, err := req.header(func() uuid.UUID {
		return game.DeterministicEventID("dispute", skaterID, uuid.Nil, turnID.String())
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := s.Engine.Execute(r.Context(), game.FileDispute{Header: h, UserID: skaterID, TurnID: turnID})
	s.afterCommand(resp)
	s.writeResponse(w, resp)
}

type resolveDisputeRequest struct {
	commandEnvelope
	DisputeID   int    `json:"dispute_id"`
	FinalResult string `json:"final_result"`
}

// ResolveDisputeHandler is the external resolver's entry point. It is guarded
// by a shared key in the X-Resolver-Key header, never by a player session.
func (s *Server) ResolveDisputeHandler(w http.ResponseWriter, r *http.Request) {
	if s.ResolverKeyHash == "" {
		http.Error(w, "dispute resolution is not enabled", http.StatusForbidden)
		return
	}
	key := r.Header.Get("X-Resolver-Key")
	match, err := auth.CompareSecret(key, s.ResolverKeyHash)
	if err != nil || !match {
		http.Error(w, "invalid resolver key", http.StatusForbidden)
		return
	}

	var req resolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	result := models.TurnResult(req.FinalResult)
	if result != models.ResultLanded && result != models.ResultMissed {
		http.Error(w, "final_result must be landed or missed", http.StatusBadRequest)
		return
	}
	if req.DisputeID <= 0 {
		http.Error(w, "invalid dispute_id", http.StatusBadRequest)
		return
	}
	h, err := req.header(func() uuid.UUID {
		return game.DeterministicEventID("resolve", uuid.Nil, uuid.Nil, req.GameID+"|"+req.FinalResult+"|"+strconv.Itoa(req.DisputeID))
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := s.Engine.Execute(r.Context(), game.ResolveDispute{
		Header:      h,
		DisputeID:   req.DisputeID,
		FinalResult: result,
	})
	s.afterCommand(resp)
	s.writeResponse(w, resp)
}

// GetGameHandler returns the current session snapshot.
func (s *Server) GetGameHandler(w http.ResponseWriter, r *http.Request) {
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
		s.Logger.Errorf("failed to load game %s: %v", gameID, err)
		http.Error(w, "failed to load game", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess)
}

// afterCommand pushes the fresh snapshot to websocket watchers.
func (s *Server) afterCommand(resp engine.Response) {
	if resp.Success && resp.Game != nil {
		s.Hub.Broadcast(resp.Game)
	}
}
