package engine

import (
	"fmt"
	"maps"
	"slices"
)

type PlayerSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RolesCards struct {
	Roles map[string]any `json:"roles"`
	Cards map[string]any `json:"cards"`
}

// View is what one recipient is allowed to see. Participant-only fields are
// empty in a spectator view.
type View struct {
	Spectator bool     `json:"spectator"`
	Seat      int      `json:"seat"`
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"username,omitempty"`
	Alliance  Alliance `json:"alliance,omitempty"`
	Role      string   `json:"role,omitempty"`
	See       See      `json:"see"`

	Buttons          Buttons `json:"buttons"`
	StatusMessage    string  `json:"statusMessage"`
	NumSelectTargets int     `json:"numSelectTargets"`

	MatchID          string           `json:"matchId"`
	Phase            Phase            `json:"phase"`
	MissionNumber    int              `json:"missionNum"`
	PickNumber       int              `json:"pickNum"`
	TeamLeader       int              `json:"teamLeader"`
	Hammer           int              `json:"hammer"`
	ProposedTeam     []string         `json:"proposedTeam"`
	MissionSizes     []MissionSize    `json:"numPlayersOnMission"`
	Votes            []Ballot         `json:"votes"`
	PlayersYetToVote []string         `json:"playersYetToVote"`
	MissionHistory   []MissionOutcome `json:"missionHistory"`
	VoteHistory      VoteLedger       `json:"voteHistory"`
	Winner           Alliance         `json:"winner,omitempty"`
	HowWon           string           `json:"howWon,omitempty"`
	Players          []PlayerSummary  `json:"players"`
	RolesCards       RolesCards       `json:"rolesCards"`
	Private          map[string]any   `json:"private,omitempty"`
}

// Project returns the view for id. Anyone who is not a participant gets the
// spectator view.
func (e *Engine) Project(s State, id string) View {
	seat := s.SeatOf(id)
	if seat < 0 {
		return e.ProjectSpectator(s)
	}
	p := s.Participants[seat]
	v := e.shared(s, seat)
	v.ID, v.Name = p.ID, p.Name
	v.Alliance, v.Role = p.Alliance, p.Role
	v.See = cloneSee(p.See)

	roles, cards := e.hooks(s)
	for _, h := range append(roles, cards...) {
		pp, ok := h.(PrivateProjector)
		if !ok {
			continue
		}
		if data := pp.PrivateData(s, id); len(data) > 0 {
			if v.Private == nil {
				v.Private = map[string]any{}
			}
			maps.Copy(v.Private, data)
		}
	}

	if s.Phase == PhaseFinished {
		v.See = fullDisclosure(s)
	}
	return v
}

func (e *Engine) ProjectSpectator(s State) View {
	v := e.shared(s, -1)
	v.Spectator = true
	if s.Phase == PhaseFinished {
		v.See = fullDisclosure(s)
	}
	return v
}

func (e *Engine) shared(s State, seat int) View {
	v := View{
		Seat:             seat,
		MatchID:          s.MatchID,
		Phase:            s.Phase,
		MissionNumber:    s.MissionNumber,
		PickNumber:       s.PickNumber,
		TeamLeader:       s.TeamLeader,
		Hammer:           s.Hammer,
		ProposedTeam:     slices.Clone(s.ProposedTeam),
		MissionSizes:     MissionSizes(len(s.Participants)),
		Votes:            slices.Clone(s.PublicVotes),
		PlayersYetToVote: playersYetToVote(s),
		MissionHistory:   slices.Clone(s.MissionHistory),
		VoteHistory:      s.Ledger.Clone(),
		Winner:           s.Winner,
		RolesCards:       e.publicData(s),
	}
	for _, p := range s.Participants {
		v.Players = append(v.Players, PlayerSummary{ID: p.ID, Name: p.Name})
	}
	if s.Winner != "" {
		v.HowWon = s.HowWon
	}

	v.Buttons, v.NumSelectTargets, v.StatusMessage = e.seatControls(s, seat)

	if s.Phase == PhaseFinished {
		v.ProposedTeam = slices.Clone(s.LastProposedTeam)
	} else if sp, ok := e.catalog.SpecialPhase(s.Phase); ok && sp.ShowsLastTeam() {
		v.ProposedTeam = slices.Clone(s.LastProposedTeam)
	}
	return v
}

func (e *Engine) seatControls(s State, seat int) (Buttons, int, string) {
	if seat < 0 {
		return HiddenButtons(), 0, e.status(s, seat)
	}
	if s.Phase.IsCommon() {
		b, n := commonControls(s, seat)
		return b, n, e.status(s, seat)
	}
	sp, ok := e.catalog.SpecialPhase(s.Phase)
	if !ok {
		return HiddenButtons(), 0, e.status(s, seat)
	}
	return sp.Buttons(s, seat), sp.NumTargets(s, seat), sp.Status(s, seat)
}

func commonControls(s State, seat int) (Buttons, int) {
	id := s.Participants[seat].ID
	switch s.Phase {
	case PhasePickingTeam:
		if seat == s.TeamLeader {
			return SelectButtons("Pick"), TeamSize(len(s.Participants), s.MissionNumber)
		}
	case PhaseVotingTeam:
		return Buttons{
			Green: ButtonState{Text: "Approve"},
			Red:   ButtonState{Text: "Reject"},
		}, 0
	case PhaseVotingMission:
		if s.OnTeam(id) {
			return Buttons{
				Green: ButtonState{Text: "SUCCEED"},
				Red:   ButtonState{Text: "FAIL"},
			}, 0
		}
	}
	return HiddenButtons(), 0
}

func (e *Engine) status(s State, seat int) string {
	switch s.Phase {
	case PhasePickingTeam:
		size := TeamSize(len(s.Participants), s.MissionNumber)
		if seat == s.TeamLeader {
			return fmt.Sprintf("Your turn to pick a team of %d.", size)
		}
		return fmt.Sprintf("Waiting for %s to pick a team of %d.", s.Leader().Name, size)
	case PhaseVotingTeam:
		if seat >= 0 && s.Votes[seat] == BallotNone {
			return "Approve or reject the proposed team."
		}
		return "Waiting for votes on the proposed team."
	case PhaseVotingMission:
		if seat >= 0 && s.OnTeam(s.Participants[seat].ID) {
			if _, voted := s.MissionVotes[s.Participants[seat].ID]; !voted {
				return "Succeed or fail the mission."
			}
		}
		return "Waiting for the mission team to vote."
	case PhaseFinished:
		if s.Winner == AllianceSpy {
			return "The spies have won the match."
		}
		return "The resistance have won the match."
	}
	if sp, ok := e.catalog.SpecialPhase(s.Phase); ok {
		return sp.Status(s, seat)
	}
	return ""
}

func playersYetToVote(s State) []string {
	var out []string
	switch s.Phase {
	case PhaseVotingTeam:
		for i, p := range s.Participants {
			if i < len(s.Votes) && s.Votes[i] == BallotNone {
				out = append(out, p.ID)
			}
		}
	case PhaseVotingMission:
		for _, id := range s.ProposedTeam {
			if _, ok := s.MissionVotes[id]; !ok {
				out = append(out, id)
			}
		}
	}
	return out
}

func (e *Engine) publicData(s State) RolesCards {
	rc := RolesCards{Roles: map[string]any{}, Cards: map[string]any{}}
	roles, cards := e.hooks(s)
	for _, h := range roles {
		if pp, ok := h.(PublicProjector); ok {
			maps.Copy(rc.Roles, pp.PublicData(s))
		}
	}
	for _, h := range cards {
		if pp, ok := h.(PublicProjector); ok {
			maps.Copy(rc.Cards, pp.PublicData(s))
		}
	}
	return rc
}

func fullDisclosure(s State) See {
	return See{Spies: s.Spies(), Roles: s.RevealedRoles()}
}

func cloneSee(see See) See {
	return See{
		Spies:   slices.Clone(see.Spies),
		Merlins: slices.Clone(see.Merlins),
		Roles:   slices.Clone(see.Roles),
	}
}
