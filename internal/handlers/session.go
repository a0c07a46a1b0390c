// internal/handlers/session.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/skatebattle/skate/internal/auth"
)

// sessionToken pulls the session cookie's value, or "" when absent.
func sessionToken(r *http.Request) string {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// EnsureSkater resolves the calling skater's id from the session cookie,
// minting an ephemeral guest identity when no valid token is present. Guests
// carry a fresh uuid; there is no account record behind them.
func EnsureSkater(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if token := sessionToken(r); token != "" {
		skaterID, err := auth.Authenticate(token)
		if err == nil {
			parsed, parseErr := uuid.Parse(skaterID)
			if parseErr != nil {
				return uuid.Nil, fmt.Errorf("invalid skater id in token: %w", parseErr)
			}
			return parsed, nil
		}
		// fall through: stale or forged token gets replaced by a guest
	}

	guestID := uuid.New()
	token, err := auth.CreateToken(guestID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create guest token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return guestID, nil
}

type guestSessionResponse struct {
	SkaterID string `json:"skater_id"`
	Token    string `json:"token"`
}

// GuestSessionHandler mints a guest identity explicitly so native clients
// that don't speak cookies can hold the token themselves.
func (s *Server) GuestSessionHandler(w http.ResponseWriter, r *http.Request) {
	guestID := uuid.New()
	token, err := auth.CreateToken(guestID.String())
	if err != nil {
		s.Logger.Errorf("failed to create guest token: %v", err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(guestSessionResponse{SkaterID: guestID.String(), Token: token})
}
