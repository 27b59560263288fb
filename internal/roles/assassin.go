package roles

import (
	"fmt"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
)

type assassinData struct {
	StartedAt time.Time `json:"startedAt"`
	Target    string    `json:"target,omitempty"`
}

func loadAssassin(s *engine.State) assassinData {
	var d assassinData
	_ = s.LoadExtension(KeyAssassin, &d)
	return d
}

type assassin struct {
	basicRole
	catalog *Catalog
}

// CheckSpecialMove claims a resistance finish and opens the assassination, as long
// as a Merlin is in play and no shot has been taken yet.
func (a *assassin) CheckSpecialMove(s *engine.State, cmd engine.Command) ([]engine.Event, bool) {
	if cmd.Type != engine.CmdFinish || s.PendingWinner != engine.AllianceResistance {
		return nil, false
	}
	if !s.HasRole(KeyAssassin) || !s.HasRole(KeyMerlin) {
		return nil, false
	}
	d := loadAssassin(s)
	if d.Target != "" {
		return nil, false
	}
	d.StartedAt = a.catalog.now()
	if err := s.StoreExtension(KeyAssassin, d); err != nil {
		return nil, false
	}
	s.Phase = PhaseAssassination
	return []engine.Event{
		engine.PhaseChanged(s.Phase),
		engine.Message("The resistance have completed three missions. The assassin is choosing a target."),
	}, true
}

func (a *assassin) PublicData(s engine.State) map[string]any {
	d := loadAssassin(&s)
	if d.StartedAt.IsZero() {
		return nil
	}
	out := map[string]any{"assassinationStartedAt": d.StartedAt}
	if s.Winner != "" && d.Target != "" {
		out["assassinShot"] = d.Target
	}
	return out
}

type assassinationPhase struct{}

func (assassinationPhase) Phase() engine.Phase { return PhaseAssassination }

func (assassinationPhase) ShowsLastTeam() bool { return true }

func (assassinationPhase) Apply(s *engine.State, cmd engine.Command) (engine.PhaseResult, error) {
	if cmd.Type != engine.CmdSelectTargets {
		return engine.PhaseResult{}, engine.ErrWrongPhase
	}
	shooter, ok := s.HolderOf(KeyAssassin)
	if !ok {
		return engine.PhaseResult{}, fmt.Errorf("%w: no assassin in play", engine.ErrConfiguration)
	}
	if cmd.Actor != shooter.ID {
		return engine.PhaseResult{}, engine.ErrNotYourTurn
	}
	if len(cmd.Targets) != 1 {
		return engine.PhaseResult{}, engine.ErrInvalidTarget
	}
	seat := s.SeatOf(cmd.Targets[0])
	if seat < 0 {
		return engine.PhaseResult{}, engine.ErrUnknownParticipant
	}
	target := s.Participants[seat]
	if target.ID == shooter.ID {
		return engine.PhaseResult{}, engine.ErrInvalidTarget
	}

	d := loadAssassin(s)
	d.Target = target.ID
	if err := s.StoreExtension(KeyAssassin, d); err != nil {
		return engine.PhaseResult{}, err
	}

	res := engine.PhaseResult{
		Events: []engine.Event{
			{Type: engine.EvtGameplayMessage, Actor: shooter.ID, Targets: []string{target.ID},
				Text: fmt.Sprintf("The assassin has shot %s.", target.Name)},
		},
		Finish: engine.AllianceResistance,
		HowWon: "Mission successes and assassin shot wrong.",
	}
	if target.RoleKey == KeyMerlin {
		res.Finish = engine.AllianceSpy
		res.HowWon = "Assassinated Merlin correctly."
	}
	return res, nil
}

func isShooter(s engine.State, seat int) bool {
	p, ok := s.HolderOf(KeyAssassin)
	return ok && seat >= 0 && s.Participants[seat].ID == p.ID
}

func (assassinationPhase) Buttons(s engine.State, seat int) engine.Buttons {
	if isShooter(s, seat) {
		return engine.SelectButtons("Shoot")
	}
	return engine.HiddenButtons()
}

func (assassinationPhase) NumTargets(s engine.State, seat int) int {
	if isShooter(s, seat) {
		return 1
	}
	return 0
}

func (assassinationPhase) Status(s engine.State, seat int) string {
	if isShooter(s, seat) {
		return "Shoot Merlin."
	}
	return "Waiting for the assassin to shoot Merlin."
}
