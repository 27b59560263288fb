package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/DoyleJ11/resistance-backend/internal/hub"
	"github.com/DoyleJ11/resistance-backend/internal/lobby"
	"github.com/DoyleJ11/resistance-backend/internal/roles"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const lookupTimeout = 2 * time.Second

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createMatchRequest struct {
	Password string `json:"password"`
}

type createMatchResponse struct {
	Code    string `json:"code"`
	MatchID string `json:"matchId"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getLobby(h *hub.Hub, code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
	return <-reply
}

func CreateMatch(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMatchRequest
		// An empty body means no password.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			if getLobby(h, c) == nil {
				code = c
				break
			}
			log.Debug("collision on code, regenerating", zap.String("code", c))
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.CreateLobby{Code: code, Password: req.Password, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "failed to create match", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, createMatchResponse{Code: code, MatchID: lb.MatchID()})
	}
}

// GetMatch returns the spectator view, so it never leaks hidden information.
func GetMatch(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb := getLobby(h, chi.URLParam(r, "code"))
		if lb == nil {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		reply := make(chan lobby.View, 1)
		lb.Inbox() <- lobby.GetState{Reply: reply}
		select {
		case v := <-reply:
			writeJSON(w, http.StatusOK, struct {
				Version int          `json:"version"`
				Roster  lobby.Roster `json:"roster"`
				State   engine.View  `json:"state"`
			}{v.Version, v.Roster, v.Spectator})
		case <-time.After(lookupTimeout):
			http.Error(w, "match unavailable", http.StatusServiceUnavailable)
		}
	}
}

func DeleteMatch(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		lb := getLobby(h, code)
		if lb == nil {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		if err := lb.Authorize(r.URL.Query().Get("password")); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		h.Inbox() <- hub.RemoveLobby{Code: code}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListOptions reports the role and card keys a host may pick from.
func ListOptions(w http.ResponseWriter, r *http.Request) {
	rs, cs := roles.NewCatalog().Keys()
	writeJSON(w, http.StatusOK, struct {
		Version string   `json:"version"`
		Roles   []string `json:"roles"`
		Cards   []string `json:"cards"`
	}{roles.Version, rs, cs})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
