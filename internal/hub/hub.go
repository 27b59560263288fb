package hub

import (
	"context"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/DoyleJ11/resistance-backend/internal/lobby"
	"go.uber.org/zap"
)

// stopTimeout bounds how long the hub waits on a lobby's inbox.
const stopTimeout = 500 * time.Millisecond

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Code     string
	Password string
	Reply    chan *lobby.Lobby // nil lobby when creation failed
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby shuts the lobby down and forgets its code.
type RemoveLobby struct {
	Code string
}

// ShutdownHub stops every lobby and closes Done once their pending
// match records have been written.
type ShutdownHub struct {
	Done chan struct{}
}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Config is shared by every lobby the hub creates.
type Config struct {
	Rules          engine.Rules
	Recorder       lobby.Recorder
	PersistTimeout time.Duration
	Logger         *zap.Logger
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				lb, err := lobby.NewLobby(h.ctx, lobby.Config{
					Rules:          h.cfg.Rules,
					Recorder:       h.cfg.Recorder,
					PersistTimeout: h.cfg.PersistTimeout,
					Logger:         h.log.Named("lobby").With(zap.String("code", msg.Code)),
					Password:       msg.Password,
				})
				if err != nil {
					h.log.Error("create lobby", zap.String("code", msg.Code), zap.Error(err))
					msg.Reply <- nil
					break
				}
				h.lobbies[msg.Code] = lb
				h.log.Info("lobby created", zap.String("code", msg.Code), zap.String("match", lb.MatchID()))
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					h.stop(msg.Code, lb)
					delete(h.lobbies, msg.Code)
				}

			case ShutdownHub:
				for code, lb := range h.lobbies {
					h.stop(code, lb)
				}
				for _, lb := range h.lobbies {
					lb.Wait()
				}
				h.log.Info("hub stopped", zap.Int("lobbies", len(h.lobbies)))
				clear(h.lobbies)
				h.cancel()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

// stop queues a Shutdown behind the lobby's pending messages. A lobby that
// is not draining its inbox is cancelled instead.
func (h *Hub) stop(code string, lb *lobby.Lobby) {
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-time.After(stopTimeout):
		h.log.Warn("lobby inbox full, cancelling", zap.String("code", code))
		lb.Close()
	}
}
