package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/DoyleJ11/resistance-backend/internal/hub"
	"github.com/DoyleJ11/resistance-backend/internal/lobby"
	"github.com/DoyleJ11/resistance-backend/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var ErrUnknownType = errors.New("unknown message type")

const writeTimeout = 3 * time.Second

type Options struct {
	ClientBuffer int
	Logger       *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.ClientBuffer <= 0 {
		opts.ClientBuffer = 8
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}
		if err := lb.Authorize(q.Get("password")); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}

		clientID := q.Get("id")
		if clientID == "" {
			clientID = uuid.NewString()
		}
		seat, _ := strconv.ParseBool(q.Get("seat"))
		log := log.With(zap.String("code", code), zap.String("client", clientID))

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Warn("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		ctx := r.Context()

		out := make(chan lobby.Snapshot, opts.ClientBuffer)
		err = request(ctx, lb, func(reply chan error) lobby.Msg {
			return lobby.Join{ClientID: clientID, Name: q.Get("name"), Seat: seat, Outbox: out, Reply: reply}
		})
		if err != nil {
			_ = writeJSON(ctx, conn, types.ErrorMessage(err))
			conn.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID, Outbox: out}:
			case <-time.After(time.Second):
			}
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(ctx)
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// Dropped as a slow client, or the lobby shut down.
						conn.Close(websocket.StatusGoingAway, "lobby closed the connection")
						return
					}
					if err := writeJSON(writeCtx, conn, types.SnapshotMessage(snap)); err != nil {
						log.Debug("write snapshot", zap.Error(err))
					}
				}
			}
		}()

		// Reader loop
		for {
			var cm types.ClientMessage
			if err := wsjson.Read(ctx, conn, &cm); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read", zap.Error(err))
				}
				return
			}

			build, err := toLobbyMsg(clientID, cm)
			if err == nil {
				err = request(ctx, lb, build)
			}
			if err != nil {
				_ = writeJSON(ctx, conn, types.ErrorMessage(err))
			}
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

// request sends the message built around a fresh reply channel and waits
// for the lobby's verdict.
func request(ctx context.Context, lb *lobby.Lobby, build func(reply chan error) lobby.Msg) error {
	reply := make(chan error, 1)
	select {
	case lb.Inbox() <- build(reply):
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toLobbyMsg(clientID string, m types.ClientMessage) (func(chan error) lobby.Msg, error) {
	if m.Type == "StartMatch" {
		return func(reply chan error) lobby.Msg {
			return lobby.StartMatch{ClientID: clientID, Options: m.Options, Reply: reply}
		}, nil
	}
	cmd, ok := toEngineCommand(m)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return func(reply chan error) lobby.Msg {
		return lobby.FromClient{ClientID: clientID, Cmd: cmd, Reply: reply}
	}, nil
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "ProposeTeam":
		return engine.Command{Type: engine.CmdProposeTeam, Targets: m.Targets}, true
	case "VoteTeam":
		return engine.Command{Type: engine.CmdVoteTeam, Vote: m.Vote}, true
	case "VoteMission":
		return engine.Command{Type: engine.CmdVoteMission, Vote: m.Vote}, true
	case "SelectTargets":
		return engine.Command{Type: engine.CmdSelectTargets, Targets: m.Targets}, true
	default:
		return engine.Command{}, false
	}
}
