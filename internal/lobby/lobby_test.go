package lobby

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/DoyleJ11/resistance-backend/internal/roles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

func recvView(t *testing.T, l *Lobby) View {
	t.Helper()
	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func send(t *testing.T, l *Lobby, msg Msg) error {
	t.Helper()
	errc := make(chan error, 1)
	switch m := msg.(type) {
	case Join:
		m.Reply = errc
		msg = m
	case StartMatch:
		m.Reply = errc
		msg = m
	case FromClient:
		m.Reply = errc
		msg = m
	default:
		t.Fatalf("send: %T has no reply", msg)
	}
	l.Inbox() <- msg
	select {
	case err := <-errc:
		return err
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for reply")
		return nil
	}
}

type memRecorder struct {
	mu       sync.Mutex
	records  []engine.MatchRecord
	outcomes []engine.OutcomeDelta
}

func (m *memRecorder) RecordMatch(_ context.Context, r engine.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memRecorder) RecordOutcomes(_ context.Context, deltas []engine.OutcomeDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, deltas...)
	return nil
}

func (m *memRecorder) count() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), len(m.outcomes)
}

func newLobby(t *testing.T, cfg Config) *Lobby {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	l, err := NewLobby(ctx, cfg)
	require.NoError(t, err)
	return l
}

func seatPlayers(t *testing.T, l *Lobby, n int) map[string]chan Snapshot {
	t.Helper()
	outs := make(map[string]chan Snapshot, n)
	for i := range n {
		id := fmt.Sprintf("p%d", i)
		outs[id] = make(chan Snapshot, 64)
		require.NoError(t, send(t, l, Join{ClientID: id, Name: "Player " + id, Seat: true, Outbox: outs[id]}))
	}
	return outs
}

func drain(chs map[string]chan Snapshot) {
	for _, ch := range chs {
		for len(ch) > 0 {
			<-ch
		}
	}
}

func TestLobby_SeatsInJoinOrder(t *testing.T) {
	l := newLobby(t, Config{})
	outs := seatPlayers(t, l, 3)

	last := recvSnapshot(t, outs["p2"], 100*time.Millisecond)
	assert.Equal(t, 3, last.Version)
	assert.Equal(t, "p0", last.Roster.Host)
	require.Len(t, last.Roster.Seats, 3)
	assert.Equal(t, "Player p1", last.Roster.Seats[1].Name)
	assert.False(t, last.Roster.Started)

	// Host leaving before the start hands over to the next seat.
	l.Inbox() <- Leave{ClientID: "p0", Outbox: outs["p0"]}
	v := recvView(t, l)
	assert.Equal(t, "p1", v.Roster.Host)
	assert.Len(t, v.Roster.Seats, 2)
	assert.Equal(t, 2, v.NumClients)
}

func TestLobby_RosterFull(t *testing.T) {
	l := newLobby(t, Config{})
	seatPlayers(t, l, engine.MaxPlayers)
	err := send(t, l, Join{ClientID: "late", Seat: true, Outbox: make(chan Snapshot, 1)})
	require.ErrorIs(t, err, ErrRosterFull)
}

func TestLobby_StartRules(t *testing.T) {
	l := newLobby(t, Config{})
	seatPlayers(t, l, 4)

	require.ErrorIs(t, send(t, l, StartMatch{ClientID: "p1"}), ErrNotHost)
	require.ErrorIs(t, send(t, l, StartMatch{ClientID: "p0"}), engine.ErrInvalidPlayerCount)

	// Roster stays open after a failed start.
	require.NoError(t, send(t, l, Join{ClientID: "p4", Seat: true, Outbox: make(chan Snapshot, 64)}))
	require.NoError(t, send(t, l, StartMatch{ClientID: "p0", Options: []string{"merlin", "assassin"}}))
	require.ErrorIs(t, send(t, l, StartMatch{ClientID: "p0"}), ErrAlreadyStarted)

	v := recvView(t, l)
	assert.True(t, v.Roster.Started)
	assert.Len(t, v.State.Participants, 5)
	assert.Equal(t, []string{roles.KeyAssassin, roles.KeyMerlin}, v.State.RoleKeys)
	assert.True(t, v.Spectator.Spectator)
	assert.Equal(t, v.State.MatchID, l.MatchID())
}

func TestLobby_StartBroadcastsPerRecipientViews(t *testing.T) {
	l := newLobby(t, Config{})
	outs := seatPlayers(t, l, 5)
	watcher := make(chan Snapshot, 4)
	require.NoError(t, send(t, l, Join{ClientID: "watcher", Outbox: watcher}))
	drain(outs)
	_ = recvSnapshot(t, watcher, 100*time.Millisecond)

	require.NoError(t, send(t, l, StartMatch{ClientID: "p0"}))

	for id, ch := range outs {
		snap := recvSnapshot(t, ch, 100*time.Millisecond)
		assert.Equal(t, id, snap.View.ID)
		assert.NotEmpty(t, snap.View.Alliance)
		assert.True(t, engine.ContainsEvent(snap.Events, engine.EvtMatchStarted))
	}
	snap := recvSnapshot(t, watcher, 100*time.Millisecond)
	assert.True(t, snap.View.Spectator)
	assert.Empty(t, snap.View.Alliance)
	assert.Empty(t, snap.View.See.Spies)
}

func TestLobby_CommandActorIsTheSender(t *testing.T) {
	l := newLobby(t, Config{})
	outs := seatPlayers(t, l, 5)
	require.NoError(t, send(t, l, StartMatch{ClientID: "p0"}))
	drain(outs)

	s := recvView(t, l).State
	leader := s.Leader().ID
	other := s.Participants[(s.TeamLeader+1)%5].ID
	team := []string{s.Participants[0].ID, s.Participants[1].ID}

	// Claiming to be the leader doesn't help a different sender.
	err := send(t, l, FromClient{ClientID: other, Cmd: engine.Command{Type: engine.CmdProposeTeam, Actor: leader, Targets: team}})
	require.ErrorIs(t, err, engine.ErrNotLeader)
	recvNoSnapshot(t, outs[leader], 50*time.Millisecond)

	require.NoError(t, send(t, l, FromClient{ClientID: leader, Cmd: engine.Command{Type: engine.CmdProposeTeam, Targets: team}}))
	snap := recvSnapshot(t, outs[other], 100*time.Millisecond)
	assert.Equal(t, engine.PhaseVotingTeam, snap.View.Phase)
	assert.Equal(t, team, snap.View.ProposedTeam)
}

func TestLobby_CommandBeforeStart(t *testing.T) {
	l := newLobby(t, Config{})
	seatPlayers(t, l, 5)
	err := send(t, l, FromClient{ClientID: "p0", Cmd: engine.Command{Type: engine.CmdProposeTeam}})
	require.ErrorIs(t, err, engine.ErrNotStarted)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := newLobby(t, Config{})

	slow := make(chan Snapshot, 1)
	require.NoError(t, send(t, l, Join{ClientID: "slow", Outbox: slow}))
	// The join snapshot fills the buffer; the next broadcast drops the client.
	seatPlayers(t, l, 1)

	view := recvView(t, l)
	if view.NumClients != 1 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestLobby_ReconnectGetsParticipantView(t *testing.T) {
	l := newLobby(t, Config{})
	outs := seatPlayers(t, l, 5)
	require.NoError(t, send(t, l, StartMatch{ClientID: "p0"}))
	l.Inbox() <- Leave{ClientID: "p3", Outbox: outs["p3"]}
	drain(outs)

	again := make(chan Snapshot, 4)
	require.NoError(t, send(t, l, Join{ClientID: "p3", Seat: true, Outbox: again}))
	snap := recvSnapshot(t, again, 100*time.Millisecond)
	assert.False(t, snap.View.Spectator)
	assert.Equal(t, "p3", snap.View.ID)
	assert.Len(t, snap.Roster.Seats, 5)
}

// A reconnect usually lands before the old socket's Leave.
func TestLobby_StaleLeaveAfterReconnect(t *testing.T) {
	cases := []struct {
		name  string
		start bool
	}{
		{"before start", false},
		{"after start", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newLobby(t, Config{})
			outs := seatPlayers(t, l, 5)
			if tc.start {
				require.NoError(t, send(t, l, StartMatch{ClientID: "p0"}))
			}
			drain(outs)

			again := make(chan Snapshot, 8)
			require.NoError(t, send(t, l, Join{ClientID: "p3", Seat: true, Outbox: again}))
			recvSnapshot(t, again, 100*time.Millisecond)

			_, ok := <-outs["p3"]
			assert.False(t, ok, "replaced outbox should be closed")

			l.Inbox() <- Leave{ClientID: "p3", Outbox: outs["p3"]}
			v := recvView(t, l)
			assert.Equal(t, 5, v.NumClients)
			require.Len(t, v.Roster.Seats, 5)
			assert.Equal(t, "p3", v.Roster.Seats[3].ID)
			assert.Equal(t, "p0", v.Roster.Host)

			if tc.start {
				leader := v.State.Leader().ID
				size := engine.TeamSize(5, 1)
				var team []string
				for _, p := range v.State.Participants[:size] {
					team = append(team, p.ID)
				}
				require.NoError(t, send(t, l, FromClient{ClientID: leader, Cmd: engine.Command{Type: engine.CmdProposeTeam, Targets: team}}))
				snap := recvSnapshot(t, again, 100*time.Millisecond)
				assert.Equal(t, "p3", snap.View.ID)
			}

			// The live connection leaving still counts.
			l.Inbox() <- Leave{ClientID: "p3", Outbox: again}
			v = recvView(t, l)
			assert.Equal(t, 4, v.NumClients)
			if tc.start {
				assert.Len(t, v.Roster.Seats, 5)
			} else {
				assert.Len(t, v.Roster.Seats, 4)
			}
		})
	}
}

func playToFinish(t *testing.T, l *Lobby) {
	t.Helper()
	for range 3 {
		s := recvView(t, l).State
		size := engine.TeamSize(len(s.Participants), s.MissionNumber)
		var team []string
		for _, p := range s.Participants[:size] {
			team = append(team, p.ID)
		}
		require.NoError(t, send(t, l, FromClient{ClientID: s.Leader().ID, Cmd: engine.Command{Type: engine.CmdProposeTeam, Targets: team}}))
		for _, p := range s.Participants {
			require.NoError(t, send(t, l, FromClient{ClientID: p.ID, Cmd: engine.Command{Type: engine.CmdVoteTeam, Vote: "approve"}}))
		}
		for _, id := range team {
			require.NoError(t, send(t, l, FromClient{ClientID: id, Cmd: engine.Command{Type: engine.CmdVoteMission, Vote: engine.MissionFail}}))
		}
	}
}

func TestLobby_FinishedMatchIsRecorded(t *testing.T) {
	rec := &memRecorder{}
	l := newLobby(t, Config{Recorder: rec, PersistTimeout: time.Second})
	seatPlayers(t, l, 5)
	require.NoError(t, send(t, l, StartMatch{ClientID: "p0"}))
	playToFinish(t, l)

	v := recvView(t, l)
	require.Equal(t, engine.AllianceSpy, v.State.Winner)

	require.Eventually(t, func() bool {
		records, outcomes := rec.count()
		return records == 1 && outcomes == 5
	}, time.Second, 10*time.Millisecond)

	l.Wait()
	assert.Equal(t, "Mission fails.", rec.records[0].HowWon)
	assert.Equal(t, l.MatchID(), rec.records[0].MatchID)

	// Finished matches take no more commands.
	err := send(t, l, FromClient{ClientID: "p0", Cmd: engine.Command{Type: engine.CmdProposeTeam}})
	require.ErrorIs(t, err, engine.ErrMatchFinished)
}

// trickster moves the match into a phase no catalog knows about.
type trickster struct{}

func (trickster) Key() string               { return "trickster" }
func (trickster) Name() string              { return "Trickster" }
func (trickster) Alliance() engine.Alliance { return engine.AllianceResistance }
func (trickster) See(engine.Participant, []engine.Participant) engine.See {
	return engine.See{}
}

func (trickster) CheckSpecialMove(s *engine.State, cmd engine.Command) ([]engine.Event, bool) {
	if cmd.Type != engine.CmdProposeTeam {
		return nil, false
	}
	s.Phase = "void"
	return nil, true
}

type trickCatalog struct{ *roles.Catalog }

func (c trickCatalog) Role(key string) (engine.Role, bool) {
	if key == "trickster" {
		return trickster{}, true
	}
	return c.Catalog.Role(key)
}

func TestLobby_ConfigurationErrorHalts(t *testing.T) {
	l := newLobby(t, Config{Catalog: trickCatalog{roles.NewCatalog()}})
	outs := seatPlayers(t, l, 5)
	require.NoError(t, send(t, l, StartMatch{ClientID: "p0", Options: []string{"trickster"}}))

	s := recvView(t, l).State
	team := []string{s.Participants[0].ID, s.Participants[1].ID}
	require.NoError(t, send(t, l, FromClient{ClientID: s.Leader().ID, Cmd: engine.Command{Type: engine.CmdProposeTeam, Targets: team}}))
	drain(outs)

	err := send(t, l, FromClient{ClientID: "p0", Cmd: engine.Command{Type: engine.CmdVoteTeam, Vote: "approve"}})
	require.ErrorIs(t, err, engine.ErrConfiguration)
	snap := recvSnapshot(t, outs["p1"], 100*time.Millisecond)
	assert.True(t, engine.ContainsEvent(snap.Events, engine.EvtDiagnostic))
	assert.True(t, snap.Roster.Halted)

	err = send(t, l, FromClient{ClientID: "p0", Cmd: engine.Command{Type: engine.CmdVoteTeam, Vote: "approve"}})
	require.ErrorIs(t, err, ErrHalted)
}

func TestLobby_Authorize(t *testing.T) {
	open := newLobby(t, Config{})
	assert.NoError(t, open.Authorize("anything"))

	locked := newLobby(t, Config{Password: "hunter2"})
	assert.NoError(t, locked.Authorize("hunter2"))
	assert.ErrorIs(t, locked.Authorize("hunter3"), ErrBadPassword)
}

func TestLobby_Shutdown_ClosesOutboxes(t *testing.T) {
	l := newLobby(t, Config{})
	out := make(chan Snapshot, 2)
	require.NoError(t, send(t, l, Join{ClientID: "c1", Outbox: out}))
	_ = recvSnapshot(t, out, 500*time.Millisecond) // drain join snapshot

	l.Inbox() <- Shutdown{}
	recvNoSnapshot(t, out, 200*time.Millisecond)
	_, ok := <-out
	assert.False(t, ok)
}
