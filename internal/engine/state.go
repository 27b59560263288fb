package engine

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

type Alliance string

const (
	AllianceResistance Alliance = "Resistance"
	AllianceSpy        Alliance = "Spy"
)

type Phase string

const (
	PhasePickingTeam   Phase = "pickingTeam"
	PhaseVotingTeam    Phase = "votingTeam"
	PhaseVotingMission Phase = "votingMission"
	PhaseFinished      Phase = "finished"
)

// Common phases are owned by the engine. Anything else is resolved through the Catalog.
func (p Phase) IsCommon() bool {
	switch p {
	case PhasePickingTeam, PhaseVotingTeam, PhaseVotingMission, PhaseFinished:
		return true
	}
	return false
}

type Ballot string

const (
	BallotNone    Ballot = ""
	BallotApprove Ballot = "approve"
	BallotReject  Ballot = "reject"
)

const (
	MissionSucceed = "succeed"
	MissionFail    = "fail"
)

type MissionOutcome string

const (
	OutcomeSucceeded MissionOutcome = "succeeded"
	OutcomeFailed    MissionOutcome = "failed"
)

// Seat is what the roster provider hands over when the match starts.
type Seat struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// See is the frozen visibility payload a role computes once at assignment.
type See struct {
	Spies   []string `json:"spies,omitempty"`
	Merlins []string `json:"merlins,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

type Participant struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Alliance Alliance `json:"alliance"`
	Role     string   `json:"role"`
	RoleKey  string   `json:"roleKey"`
	See      See      `json:"see"`
}

type Rules struct {
	HammerAutoApprove bool `json:"hammerAutoApprove"`
}

// State is pure data. Behaviour is looked up from the Catalog by key on demand,
// so a State can be serialized and restored without losing anything.
type State struct {
	MatchID string `json:"matchId"`
	Phase   Phase  `json:"phase"`
	Rules   Rules  `json:"rules"`

	Participants []Participant `json:"participants"`
	RoleKeys     []string      `json:"roleKeys"`
	CardKeys     []string      `json:"cardKeys"`
	// Role names consumed from the selection, per alliance.
	ResistanceRoles []string `json:"resistanceRoles"`
	SpyRoles        []string `json:"spyRoles"`

	MissionNumber int `json:"missionNumber"`
	PickNumber    int `json:"pickNumber"`
	TeamLeader    int `json:"teamLeader"`
	Hammer        int `json:"hammer"`

	ProposedTeam     []string `json:"proposedTeam"`
	LastProposedTeam []string `json:"lastProposedTeam"`

	Votes        []Ballot          `json:"votes"`
	PublicVotes  []Ballot          `json:"publicVotes"`
	MissionVotes map[string]string `json:"missionVotes"`

	MissionHistory   []MissionOutcome `json:"missionHistory"`
	LargeMarginFails []int            `json:"largeMarginFails"`
	Ledger           VoteLedger       `json:"voteHistory"`

	PendingWinner Alliance `json:"pendingWinner,omitempty"`
	Winner        Alliance `json:"winner,omitempty"`
	HowWon        string   `json:"howWon,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`

	// Role and card owned data, keyed by role/card key.
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

func (s State) Clone() State {
	c := s
	c.Participants = slices.Clone(s.Participants)
	for i := range c.Participants {
		see := &c.Participants[i].See
		see.Spies = slices.Clone(see.Spies)
		see.Merlins = slices.Clone(see.Merlins)
		see.Roles = slices.Clone(see.Roles)
	}
	c.RoleKeys = slices.Clone(s.RoleKeys)
	c.CardKeys = slices.Clone(s.CardKeys)
	c.ResistanceRoles = slices.Clone(s.ResistanceRoles)
	c.SpyRoles = slices.Clone(s.SpyRoles)
	c.ProposedTeam = slices.Clone(s.ProposedTeam)
	c.LastProposedTeam = slices.Clone(s.LastProposedTeam)
	c.Votes = slices.Clone(s.Votes)
	c.PublicVotes = slices.Clone(s.PublicVotes)
	c.MissionVotes = maps.Clone(s.MissionVotes)
	c.MissionHistory = slices.Clone(s.MissionHistory)
	c.LargeMarginFails = slices.Clone(s.LargeMarginFails)
	c.Ledger = s.Ledger.Clone()
	if s.Extensions != nil {
		c.Extensions = make(map[string]json.RawMessage, len(s.Extensions))
		for k, v := range s.Extensions {
			c.Extensions[k] = slices.Clone(v)
		}
	}
	return c
}

func (s State) Started() bool { return len(s.Participants) > 0 }

// SeatOf returns the seat index of a participant, or -1.
func (s State) SeatOf(id string) int {
	return slices.IndexFunc(s.Participants, func(p Participant) bool { return p.ID == id })
}

func (s State) Leader() Participant { return s.Participants[s.TeamLeader] }

func (s State) OnTeam(id string) bool { return slices.Contains(s.ProposedTeam, id) }

func (s State) Spies() []string {
	var out []string
	for _, p := range s.Participants {
		if p.Alliance == AllianceSpy {
			out = append(out, p.ID)
		}
	}
	return out
}

func (s State) Resistance() []string {
	var out []string
	for _, p := range s.Participants {
		if p.Alliance == AllianceResistance {
			out = append(out, p.ID)
		}
	}
	return out
}

func (s State) RevealedRoles() []string {
	out := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		out[i] = p.Role
	}
	return out
}

// HasRole reports whether any participant holds the role key.
func (s State) HasRole(key string) bool {
	return slices.ContainsFunc(s.Participants, func(p Participant) bool { return p.RoleKey == key })
}

func (s State) HolderOf(key string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.RoleKey == key {
			return p, true
		}
	}
	return Participant{}, false
}

func (s State) countOutcomes(o MissionOutcome) int {
	n := 0
	for _, h := range s.MissionHistory {
		if h == o {
			n++
		}
	}
	return n
}

// LoadExtension decodes the data stored under key into v. A missing entry leaves v untouched.
func (s *State) LoadExtension(key string, v any) error {
	raw, ok := s.Extensions[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (s *State) StoreExtension(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.Extensions == nil {
		s.Extensions = make(map[string]json.RawMessage)
	}
	s.Extensions[key] = raw
	return nil
}
