package lobby

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/DoyleJ11/resistance-backend/internal/roles"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotHost        = errors.New("only the host can start the match")
	ErrAlreadyStarted = errors.New("match already started")
	ErrRosterFull     = errors.New("roster is full")
	ErrHalted         = errors.New("match halted after a configuration error")
	ErrBadPassword    = errors.New("wrong match password")
)

// Recorder receives finished matches. Calls happen off the lobby goroutine.
type Recorder interface {
	RecordMatch(ctx context.Context, r engine.MatchRecord) error
	RecordOutcomes(ctx context.Context, deltas []engine.OutcomeDelta) error
}

type Msg interface{ isLobbyMsg() }

// FromClient carries a gameplay command. Actor is always overwritten with ClientID.
type FromClient struct {
	ClientID string
	Cmd      engine.Command
	Reply    chan error // optional
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Name     string
	Seat     bool          // ask for a seat at the table; otherwise spectate
	Outbox   chan Snapshot // where this client wants to receive snapshots
	Reply    chan error    // optional
}

func (Join) isLobbyMsg() {}

// Leave reports that the connection behind Outbox ended. It is ignored when
// the client has since reconnected with a different outbox.
type Leave struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Leave) isLobbyMsg() {}

type StartMatch struct {
	ClientID string
	Options  []string
	Reply    chan error // optional
}

func (StartMatch) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Roster struct {
	Host    string        `json:"host"`
	Seats   []engine.Seat `json:"seats"`
	Started bool          `json:"started"`
	Halted  bool          `json:"halted"`
}

// Snapshot is what one client receives after every change.
type Snapshot struct {
	Version int
	Roster  Roster
	View    engine.View
	Events  []engine.Event
}

type View struct {
	Version    int
	NumClients int
	Roster     Roster
	State      engine.State
	Spectator  engine.View
}

type Config struct {
	Rules          engine.Rules
	Catalog        engine.Catalog // nil builds a fresh Avalon catalog
	Recorder       Recorder       // nil skips persistence
	PersistTimeout time.Duration
	Logger         *zap.Logger
	Password       string
}

type Lobby struct {
	inbox   chan Msg
	engine  *engine.Engine
	matchID string

	roster  []engine.Seat
	host    string
	started bool
	halted  bool
	state   engine.State
	version int
	clients map[string]chan Snapshot

	passwordHash   []byte
	recorder       Recorder
	persistTimeout time.Duration
	persisting     sync.WaitGroup

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewLobby(parent context.Context, cfg Config) (*Lobby, error) {
	var hash []byte
	if cfg.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = h
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = roles.NewCatalog()
	}
	timeout := cfg.PersistTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	matchID := uuid.NewString()
	log = log.With(zap.String("match", matchID))

	ctx, cancel := context.WithCancel(parent)
	l := &Lobby{
		inbox:          make(chan Msg, 64), // Small buffer
		engine:         engine.New(catalog, engine.WithLogger(log.Named("engine")), engine.WithRules(cfg.Rules)),
		matchID:        matchID,
		clients:        make(map[string]chan Snapshot),
		passwordHash:   hash,
		recorder:       cfg.Recorder,
		persistTimeout: timeout,
		log:            log,
		ctx:            ctx,
		cancel:         cancel,
	}

	go l.loop()
	return l, nil
}

// Authorize checks a join password. Lobbies created without one accept anything.
func (l *Lobby) Authorize(password string) error {
	if len(l.passwordHash) == 0 {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(l.passwordHash, []byte(password)); err != nil {
		return ErrBadPassword
	}
	return nil
}

func (l *Lobby) MatchID() string { return l.matchID }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				reply(msg.Reply, l.join(msg))

			case Leave:
				l.leave(msg)

			case StartMatch:
				reply(msg.Reply, l.start(msg))

			case FromClient:
				reply(msg.Reply, l.apply(msg))

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Roster:     l.rosterInfo(),
					State:      l.state.Clone(),
					Spectator:  l.project(""),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func reply(ch chan error, err error) {
	if ch != nil {
		ch <- err
	}
}

func (l *Lobby) join(msg Join) error {
	if msg.Seat && !l.started && !l.seated(msg.ClientID) {
		if len(l.roster) >= engine.MaxPlayers {
			return ErrRosterFull
		}
		name := msg.Name
		if name == "" {
			name = msg.ClientID
		}
		l.roster = append(l.roster, engine.Seat{ID: msg.ClientID, Name: name})
		if l.host == "" {
			l.host = msg.ClientID
		}
		l.log.Info("seat taken", zap.String("client", msg.ClientID), zap.Int("seats", len(l.roster)))
		l.register(msg.ClientID, msg.Outbox)
		l.version++
		l.broadcast(nil)
		return nil
	}

	// Register client + send current snapshot immediately
	l.register(msg.ClientID, msg.Outbox)
	l.send(msg.ClientID, msg.Outbox, nil)
	return nil
}

// register points id at a new outbox. A replaced outbox is closed so the old
// connection winds down.
func (l *Lobby) register(id string, ch chan Snapshot) {
	if old, ok := l.clients[id]; ok && old != ch {
		close(old)
	}
	l.clients[id] = ch
}

func (l *Lobby) seated(id string) bool {
	return slices.ContainsFunc(l.roster, func(s engine.Seat) bool { return s.ID == id })
}

func (l *Lobby) leave(msg Leave) {
	id := msg.ClientID
	if ch, ok := l.clients[id]; ok {
		if ch != msg.Outbox {
			l.log.Debug("stale leave ignored", zap.String("client", id))
			return
		}
		delete(l.clients, id)
	}
	if l.started || !l.seated(id) {
		return
	}
	l.roster = slices.DeleteFunc(l.roster, func(s engine.Seat) bool { return s.ID == id })
	if l.host == id {
		l.host = ""
		if len(l.roster) > 0 {
			l.host = l.roster[0].ID
		}
	}
	l.version++
	l.broadcast(nil)
}

func (l *Lobby) start(msg StartMatch) error {
	if l.started {
		return ErrAlreadyStarted
	}
	if msg.ClientID != l.host {
		return ErrNotHost
	}
	s, events, err := l.engine.Start(l.matchID, l.roster, msg.Options)
	if err != nil {
		// The roster stays open; the host can wait for more players.
		return err
	}
	l.state = s
	l.started = true
	l.version++
	l.broadcast(events)
	return nil
}

func (l *Lobby) apply(msg FromClient) error {
	if !l.started {
		return engine.ErrNotStarted
	}
	if l.halted {
		return ErrHalted
	}
	cmd := msg.Cmd
	cmd.Actor = msg.ClientID

	events, next, err := l.engine.Apply(l.state, cmd)
	if err != nil {
		if errors.Is(err, engine.ErrConfiguration) {
			l.halted = true
			l.log.Error("match halted", zap.Error(err))
			l.version++
			l.broadcast(events)
		}
		return err
	}

	l.state = next
	l.version++
	l.broadcast(events)

	if engine.ContainsEvent(events, engine.EvtMatchFinished) {
		l.persist(l.state)
	}
	return nil
}

func (l *Lobby) persist(s engine.State) {
	if l.recorder == nil {
		return
	}
	record := l.engine.Record(s)
	deltas := l.engine.OutcomeDeltas(s)

	l.persisting.Add(1)
	go func() {
		defer l.persisting.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), l.persistTimeout)
		defer cancel()

		err := multierr.Append(
			l.recorder.RecordMatch(ctx, record),
			l.recorder.RecordOutcomes(ctx, deltas),
		)
		if err != nil {
			l.log.Error("persist finished match", zap.Error(err))
			return
		}
		l.log.Info("match recorded", zap.String("winner", string(record.Winner)), zap.String("how", record.HowWon))
	}()
}

// Wait blocks until in-flight persistence has finished.
func (l *Lobby) Wait() { l.persisting.Wait() }

func (l *Lobby) rosterInfo() Roster {
	return Roster{
		Host:    l.host,
		Seats:   slices.Clone(l.roster),
		Started: l.started,
		Halted:  l.halted,
	}
}

func (l *Lobby) project(id string) engine.View {
	if !l.started {
		return engine.View{Spectator: true, Seat: -1, Buttons: engine.HiddenButtons()}
	}
	return l.engine.Project(l.state, id)
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

// send is non-blocking; a client whose outbox is full is dropped.
func (l *Lobby) send(id string, ch chan Snapshot, events []engine.Event) bool {
	snap := Snapshot{
		Version: l.version,
		Roster:  l.rosterInfo(),
		View:    l.project(id),
		Events:  engine.VisibleTo(events, id),
	}
	select {
	case ch <- snap:
		return true
	default:
		// Client is slow/full - drop them.
		l.log.Warn("dropping slow client", zap.String("client", id))
		close(ch)
		delete(l.clients, id)
		return false
	}
}

func (l *Lobby) broadcast(events []engine.Event) {
	for id, ch := range l.clients {
		l.send(id, ch, events)
	}
}

// Close stops the lobby without going through its inbox.
func (l *Lobby) Close() { l.cancel() }

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }
