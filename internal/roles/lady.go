package roles

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
)

// The Lady comes out before missions 3, 4 and 5.
const ladyFirstMission = 3

type ladyReveal struct {
	Target   string          `json:"target"`
	Alliance engine.Alliance `json:"alliance"`
}

type ladyData struct {
	Holder         string                  `json:"holder"`
	Chain          []string                `json:"chain"`
	UsedForMission int                     `json:"usedForMission"`
	Reveals        map[string][]ladyReveal `json:"reveals,omitempty"`
}

func loadLady(s *engine.State) ladyData {
	var d ladyData
	_ = s.LoadExtension(KeyLady, &d)
	return d
}

type ladyOfTheLake struct{}

func (ladyOfTheLake) Key() string  { return KeyLady }
func (ladyOfTheLake) Name() string { return "Lady of the Lake" }

// Init hands the Lady to the seat after the first leader.
func (ladyOfTheLake) Init(s *engine.State) []engine.Event {
	n := len(s.Participants)
	holder := s.Participants[(s.TeamLeader+1)%n]
	d := ladyData{Holder: holder.ID, Chain: []string{holder.ID}}
	if err := s.StoreExtension(KeyLady, d); err != nil {
		return nil
	}
	return []engine.Event{engine.Message(fmt.Sprintf("%s has the Lady of the Lake.", holder.Name))}
}

func (ladyOfTheLake) CheckSpecialMove(s *engine.State, cmd engine.Command) ([]engine.Event, bool) {
	if cmd.Type == engine.CmdFinish || s.Winner != "" {
		return nil, false
	}
	if s.Phase != engine.PhasePickingTeam || s.PickNumber != 1 || s.MissionNumber < ladyFirstMission {
		return nil, false
	}
	d := loadLady(s)
	if d.Holder == "" || d.UsedForMission == s.MissionNumber {
		return nil, false
	}
	d.UsedForMission = s.MissionNumber
	if err := s.StoreExtension(KeyLady, d); err != nil {
		return nil, false
	}
	s.Phase = PhaseLady
	name := d.Holder
	if seat := s.SeatOf(d.Holder); seat >= 0 {
		name = s.Participants[seat].Name
	}
	return []engine.Event{
		engine.PhaseChanged(s.Phase),
		engine.Message(fmt.Sprintf("%s is choosing who to use the Lady of the Lake on.", name)),
	}, true
}

func (ladyOfTheLake) PublicData(s engine.State) map[string]any {
	d := loadLady(&s)
	if d.Holder == "" {
		return nil
	}
	return map[string]any{"lady": d.Holder, "ladyChain": slices.Clone(d.Chain)}
}

func (ladyOfTheLake) PrivateData(s engine.State, id string) map[string]any {
	d := loadLady(&s)
	if len(d.Reveals[id]) == 0 {
		return nil
	}
	return map[string]any{"ladyReveals": slices.Clone(d.Reveals[id])}
}

type ladyPhase struct{}

func (ladyPhase) Phase() engine.Phase { return PhaseLady }

func (ladyPhase) ShowsLastTeam() bool { return false }

func (ladyPhase) Apply(s *engine.State, cmd engine.Command) (engine.PhaseResult, error) {
	if cmd.Type != engine.CmdSelectTargets {
		return engine.PhaseResult{}, engine.ErrWrongPhase
	}
	d := loadLady(s)
	if cmd.Actor != d.Holder {
		return engine.PhaseResult{}, engine.ErrNotYourTurn
	}
	if len(cmd.Targets) != 1 {
		return engine.PhaseResult{}, engine.ErrInvalidTarget
	}
	holderSeat, seat := s.SeatOf(d.Holder), s.SeatOf(cmd.Targets[0])
	if seat < 0 {
		return engine.PhaseResult{}, engine.ErrUnknownParticipant
	}
	target := s.Participants[seat]
	// Nobody may be targeted twice, and the holder can't target themselves.
	if slices.Contains(d.Chain, target.ID) {
		return engine.PhaseResult{}, engine.ErrInvalidTarget
	}

	if d.Reveals == nil {
		d.Reveals = map[string][]ladyReveal{}
	}
	d.Reveals[d.Holder] = append(d.Reveals[d.Holder], ladyReveal{Target: target.ID, Alliance: target.Alliance})
	d.Chain = append(d.Chain, target.ID)
	holder := s.Participants[holderSeat]
	d.Holder = target.ID
	if err := s.StoreExtension(KeyLady, d); err != nil {
		return engine.PhaseResult{}, err
	}

	s.Phase = engine.PhasePickingTeam
	return engine.PhaseResult{Events: []engine.Event{
		{Type: engine.EvtAllianceRevealed, Recipient: holder.ID, Targets: []string{target.ID}, Outcome: string(target.Alliance)},
		engine.Message(fmt.Sprintf("%s has used the Lady of the Lake on %s.", holder.Name, target.Name)),
		engine.PhaseChanged(s.Phase),
	}}, nil
}

func isLadyHolder(s engine.State, seat int) bool {
	d := loadLady(&s)
	return seat >= 0 && s.Participants[seat].ID == d.Holder
}

func (ladyPhase) Buttons(s engine.State, seat int) engine.Buttons {
	if isLadyHolder(s, seat) {
		return engine.SelectButtons("Card")
	}
	return engine.HiddenButtons()
}

func (ladyPhase) NumTargets(s engine.State, seat int) int {
	if isLadyHolder(s, seat) {
		return 1
	}
	return 0
}

func (ladyPhase) Status(s engine.State, seat int) string {
	if isLadyHolder(s, seat) {
		return "Choose a player to use the Lady of the Lake on."
	}
	return "Waiting for the Lady of the Lake to be used."
}
