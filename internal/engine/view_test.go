package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_SeeIsPrivateUntilFinished(t *testing.T) {
	e, s := newMatch(t, 5)
	spies := s.Spies()

	for _, p := range s.Participants {
		v := e.Project(s, p.ID)
		assert.False(t, v.Spectator)
		assert.Equal(t, p.Alliance, v.Alliance)
		if p.Alliance == AllianceSpy {
			assert.ElementsMatch(t, spies, v.See.Spies, p.ID)
		} else {
			assert.Empty(t, v.See.Spies, p.ID)
		}
		assert.Empty(t, v.See.Roles)
	}

	for range 3 {
		_, s = playMission(t, e, s, 1)
	}
	require.Equal(t, PhaseFinished, s.Phase)
	for _, p := range s.Participants {
		v := e.Project(s, p.ID)
		assert.ElementsMatch(t, spies, v.See.Spies)
		assert.Equal(t, s.RevealedRoles(), v.See.Roles)
	}
	assert.Equal(t, "Mission fails.", e.ProjectSpectator(s).HowWon)
}

func TestProjectSpectator_HasNoSecrets(t *testing.T) {
	e, s := newMatch(t, 7)
	v := e.ProjectSpectator(s)
	assert.True(t, v.Spectator)
	assert.Equal(t, -1, v.Seat)
	assert.Empty(t, v.Alliance)
	assert.Empty(t, v.Role)
	assert.Empty(t, v.See.Spies)
	assert.Equal(t, HiddenButtons(), v.Buttons)
	assert.Len(t, v.Players, 7)
	assert.Equal(t, MissionSizes(7), v.MissionSizes)

	// Unknown ids fall back to the spectator view.
	assert.Equal(t, v, e.Project(s, "stranger"))
}

func TestProject_ControlsFollowPhase(t *testing.T) {
	e, s := newMatch(t, 5)
	leader := s.TeamLeader
	other := (leader + 1) % 5

	v := e.Project(s, s.Participants[leader].ID)
	assert.Equal(t, "Pick", v.Buttons.Green.Text)
	assert.Equal(t, 2, v.NumSelectTargets)
	assert.Equal(t, HiddenButtons(), e.Project(s, s.Participants[other].ID).Buttons)

	s = propose(t, e, s)
	v = e.Project(s, s.Participants[other].ID)
	assert.Equal(t, "Approve", v.Buttons.Green.Text)
	assert.Equal(t, "Reject", v.Buttons.Red.Text)
	assert.Len(t, v.PlayersYetToVote, 5)

	_, s = mustApply(t, e, s, Command{Type: CmdVoteTeam, Actor: s.Participants[0].ID, Vote: "approve"})
	v = e.ProjectSpectator(s)
	assert.Len(t, v.PlayersYetToVote, 4)
	assert.NotContains(t, v.PlayersYetToVote, s.Participants[0].ID)
	// Individual ballots stay hidden until everyone has voted.
	assert.Empty(t, v.Votes)
}

func TestProject_FinishedShowsLastProposedTeam(t *testing.T) {
	e, s := newMatch(t, 5)
	for range 3 {
		_, s = playMission(t, e, s, 0)
	}
	require.Equal(t, AllianceResistance, s.Winner)
	v := e.ProjectSpectator(s)
	assert.Equal(t, s.LastProposedTeam, v.ProposedTeam)
	assert.NotEmpty(t, v.ProposedTeam)
}

func TestVisibleTo(t *testing.T) {
	events := []Event{
		Message("public"),
		{Type: EvtAllianceRevealed, Recipient: "p1", Targets: []string{"p2"}},
	}
	assert.Len(t, VisibleTo(events, "p1"), 2)
	assert.Len(t, VisibleTo(events, "p2"), 1)
	assert.Len(t, VisibleTo(events, ""), 1)
}
