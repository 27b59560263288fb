package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidAction      = errors.New("invalid action")
	ErrConfiguration      = errors.New("configuration error")
	ErrInvalidPlayerCount = errors.New("invalid player count")
)

var (
	ErrNotStarted         = fmt.Errorf("%w: match not started", ErrInvalidAction)
	ErrMatchFinished      = fmt.Errorf("%w: match already finished", ErrInvalidAction)
	ErrWrongPhase         = fmt.Errorf("%w: not allowed in this phase", ErrInvalidAction)
	ErrNotLeader          = fmt.Errorf("%w: only the team leader can pick", ErrInvalidAction)
	ErrWrongTeamSize      = fmt.Errorf("%w: wrong team size", ErrInvalidAction)
	ErrDuplicateMember    = fmt.Errorf("%w: duplicate team member", ErrInvalidAction)
	ErrUnknownParticipant = fmt.Errorf("%w: unknown participant", ErrInvalidAction)
	ErrNotOnTeam          = fmt.Errorf("%w: not on the proposed team", ErrInvalidAction)
	ErrInvalidBallot      = fmt.Errorf("%w: invalid ballot", ErrInvalidAction)
	ErrInvalidTarget      = fmt.Errorf("%w: invalid target", ErrInvalidAction)
	ErrNotYourTurn        = fmt.Errorf("%w: not your turn", ErrInvalidAction)
	ErrUnsupportedCommand = fmt.Errorf("%w: unsupported command", ErrInvalidAction)
)

type CommandType string

const (
	CmdProposeTeam   CommandType = "ProposeTeam"
	CmdVoteTeam      CommandType = "VoteTeam"
	CmdVoteMission   CommandType = "VoteMission"
	CmdSelectTargets CommandType = "SelectTargets"
	// CmdFinish is never sent by clients; the engine dispatches it when a win is reached.
	CmdFinish CommandType = "Finish"
)

type Command struct {
	Type    CommandType `json:"type"`
	Actor   string      `json:"actor"`
	Targets []string    `json:"targets,omitempty"`
	Vote    string      `json:"vote,omitempty"`
}

type EventType string

const (
	EvtMatchStarted      EventType = "MatchStarted"
	EvtTeamProposed      EventType = "TeamProposed"
	EvtBallotCast        EventType = "BallotCast"
	EvtTeamVoteCompleted EventType = "TeamVoteCompleted"
	EvtMissionResolved   EventType = "MissionResolved"
	EvtPhaseChanged      EventType = "PhaseChanged"
	EvtMatchFinished     EventType = "MatchFinished"
	EvtAllianceRevealed  EventType = "AllianceRevealed"
	EvtGameplayMessage   EventType = "GameplayMessage"
	EvtDiagnostic        EventType = "Diagnostic"
)

// Event is public unless Recipient is set.
type Event struct {
	Type      EventType `json:"type"`
	Actor     string    `json:"actor,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Targets   []string  `json:"targets,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Phase     Phase     `json:"phase,omitempty"`
	Text      string    `json:"text,omitempty"`
}

func Message(text string) Event { return Event{Type: EvtGameplayMessage, Text: text} }

func PhaseChanged(p Phase) Event { return Event{Type: EvtPhaseChanged, Phase: p} }

type Engine struct {
	catalog Catalog
	log     *zap.Logger
	rng     *rand.Rand
	now     func() time.Time
	rules   Rules
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithRules(r Rules) Option { return func(e *Engine) { e.rules = r } }

// New builds an engine for a single match. Engines are not safe for concurrent use;
// the owning session serializes every call.
func New(catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		log:     zap.NewNop(),
		now:     time.Now,
		rules:   Rules{HammerAutoApprove: true},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = newRand()
	}
	return e
}

func (e *Engine) Catalog() Catalog { return e.catalog }

// Apply routes cmd to the handler of the current phase, then runs the special-move
// dispatch. On error the returned state is s, unmodified.
func (e *Engine) Apply(s State, cmd Command) ([]Event, State, error) {
	if !s.Started() {
		return nil, s, ErrNotStarted
	}
	if s.Winner != "" {
		return nil, s, ErrMatchFinished
	}
	if cmd.Type == CmdFinish {
		return nil, s, ErrUnsupportedCommand
	}

	next := s.Clone()
	events, err := e.route(&next, cmd)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return events, s, err
		}
		// The base phase refused the action; a role or card may still claim it.
		next = s.Clone()
		hookEvents, claimed := e.dispatch(&next, cmd)
		if !claimed {
			return nil, s, err
		}
		return hookEvents, next, nil
	}

	hookEvents, _ := e.dispatch(&next, cmd)
	return append(events, hookEvents...), next, nil
}

func (e *Engine) route(s *State, cmd Command) ([]Event, error) {
	switch s.Phase {
	case PhasePickingTeam:
		return e.pickTeam(s, cmd)
	case PhaseVotingTeam:
		return e.voteTeam(s, cmd)
	case PhaseVotingMission:
		return e.voteMission(s, cmd)
	case PhaseFinished:
		return nil, ErrMatchFinished
	}

	sp, ok := e.catalog.SpecialPhase(s.Phase)
	if !ok {
		e.log.Error("unrecognized phase", zap.String("phase", string(s.Phase)))
		return []Event{{
			Type:  EvtDiagnostic,
			Phase: s.Phase,
			Text:  fmt.Sprintf("Unrecognized phase %q. The match cannot continue; let an admin know.", s.Phase),
		}}, fmt.Errorf("%w: unrecognized phase %q", ErrConfiguration, s.Phase)
	}
	res, err := sp.Apply(s, cmd)
	if err != nil {
		return nil, err
	}
	events := res.Events
	if res.Finish != "" {
		events = append(events, e.finish(s, res.Finish, res.HowWon)...)
	}
	return events, nil
}

func (e *Engine) pickTeam(s *State, cmd Command) ([]Event, error) {
	if cmd.Type != CmdProposeTeam {
		return nil, ErrWrongPhase
	}
	if cmd.Actor != s.Leader().ID {
		return nil, ErrNotLeader
	}
	if len(cmd.Targets) != TeamSize(len(s.Participants), s.MissionNumber) {
		return nil, ErrWrongTeamSize
	}
	seen := make(map[string]bool, len(cmd.Targets))
	for _, id := range cmd.Targets {
		if s.SeatOf(id) < 0 {
			return nil, ErrUnknownParticipant
		}
		if seen[id] {
			return nil, ErrDuplicateMember
		}
		seen[id] = true
	}

	s.ProposedTeam = append([]string(nil), cmd.Targets...)
	s.LastProposedTeam = append([]string(nil), cmd.Targets...)
	s.Votes = make([]Ballot, len(s.Participants))
	s.PublicVotes = nil
	recordTeamPick(s)
	s.Phase = PhaseVotingTeam

	return []Event{
		{Type: EvtTeamProposed, Actor: cmd.Actor, Targets: s.ProposedTeam},
		PhaseChanged(s.Phase),
	}, nil
}

func (e *Engine) voteTeam(s *State, cmd Command) ([]Event, error) {
	if cmd.Type != CmdVoteTeam {
		return nil, ErrWrongPhase
	}
	seat := s.SeatOf(cmd.Actor)
	if seat < 0 {
		return nil, ErrUnknownParticipant
	}
	b := Ballot(cmd.Vote)
	if b != BallotApprove && b != BallotReject {
		return nil, ErrInvalidBallot
	}
	s.Votes[seat] = b
	events := []Event{{Type: EvtBallotCast, Actor: cmd.Actor}}

	for _, v := range s.Votes {
		if v == BallotNone {
			return events, nil
		}
	}

	recordTeamVotes(s)
	approved, hammered := e.tallyTeamVote(s)
	switch {
	case approved:
		s.PublicVotes = append([]Ballot(nil), s.Votes...)
		s.MissionVotes = make(map[string]string, len(s.ProposedTeam))
		s.Phase = PhaseVotingMission
		outcome := "approved"
		if hammered {
			outcome = "hammer"
		}
		events = append(events,
			Event{Type: EvtTeamVoteCompleted, Outcome: outcome},
			PhaseChanged(s.Phase),
		)
	case s.PickNumber >= MaxPicks:
		events = append(events, Event{Type: EvtTeamVoteCompleted, Outcome: "rejected"})
		events = append(events, e.finish(s, AllianceSpy, "Hammer rejected.")...)
	default:
		s.PickNumber++
		s.TeamLeader = e.advanceLeader(s)
		s.Votes = nil
		s.PublicVotes = nil
		s.ProposedTeam = nil
		s.Phase = PhasePickingTeam
		events = append(events,
			Event{Type: EvtTeamVoteCompleted, Outcome: "rejected"},
			PhaseChanged(s.Phase),
		)
	}
	return events, nil
}

// tallyTeamVote decides the proposal. A tie rejects; the hammer pick is forced
// through when the rules allow it.
func (e *Engine) tallyTeamVote(s *State) (approved, hammered bool) {
	approve, reject := 0, 0
	for _, v := range s.Votes {
		switch v {
		case BallotApprove:
			approve++
		case BallotReject:
			reject++
		}
	}
	if approve > reject {
		return true, false
	}
	if s.PickNumber >= MaxPicks && s.Rules.HammerAutoApprove {
		return true, true
	}
	return false, false
}

func (e *Engine) voteMission(s *State, cmd Command) ([]Event, error) {
	if cmd.Type != CmdVoteMission {
		return nil, ErrWrongPhase
	}
	if !s.OnTeam(cmd.Actor) {
		return nil, ErrNotOnTeam
	}
	if s.MissionVotes == nil {
		s.MissionVotes = make(map[string]string)
	}
	s.MissionVotes[cmd.Actor] = cmd.Vote
	events := []Event{{Type: EvtBallotCast, Actor: cmd.Actor}}

	if len(s.MissionVotes) < len(s.ProposedTeam) {
		return events, nil
	}
	return append(events, e.resolveMission(s)...), nil
}

// advanceLeader moves leadership one seat in the direction of play. Play runs
// toward lower seat indices, wrapping, which keeps the hammer four seats behind
// the first leader of each mission.
func (e *Engine) advanceLeader(s *State) int {
	n := len(s.Participants)
	return (s.TeamLeader - 1 + n) % n
}

func hammerFor(leader, n int) int {
	return (leader - (MaxPicks - 1) + n) % n
}

// finish ends the match unless a role or card claims the finish (e.g. by entering
// a special phase). The winner is written exactly once.
func (e *Engine) finish(s *State, winner Alliance, how string) []Event {
	if s.Winner != "" {
		return nil
	}
	s.Phase = PhaseFinished
	s.PendingWinner = winner
	s.HowWon = how

	events, claimed := e.dispatch(s, Command{Type: CmdFinish})
	if claimed || s.Phase != PhaseFinished {
		return events
	}

	s.Winner = winner
	s.PendingWinner = ""
	s.FinishedAt = e.now()
	s.Votes = nil
	s.PublicVotes = nil

	text := "The resistance have won the match."
	if winner == AllianceSpy {
		text = "The spies have won the match."
	}
	return append(events,
		PhaseChanged(s.Phase),
		Event{Type: EvtMatchFinished, Outcome: string(winner), Text: how},
		Message(text),
	)
}
