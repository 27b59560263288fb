package engine

import (
	"fmt"

	"go.uber.org/zap"
)

type MissionTally struct {
	Succeeds  int
	Fails     int
	Malformed int
	Outcome   MissionOutcome
}

// TallyMission counts ballots for a mission. Anything other than succeed/fail
// is excluded from the count.
func TallyMission(ballots []string, players, mission int) MissionTally {
	var t MissionTally
	for _, b := range ballots {
		switch b {
		case MissionSucceed:
			t.Succeeds++
		case MissionFail:
			t.Fails++
		default:
			t.Malformed++
		}
	}
	t.Outcome = OutcomeSucceeded
	if t.Fails >= 2 || (t.Fails == 1 && !requiresTwoFails(players, mission)) {
		t.Outcome = OutcomeFailed
	}
	return t
}

func (e *Engine) resolveMission(s *State) []Event {
	ballots := make([]string, 0, len(s.ProposedTeam))
	for _, id := range s.ProposedTeam {
		b := s.MissionVotes[id]
		if b != MissionSucceed && b != MissionFail {
			e.log.Warn("malformed mission ballot",
				zap.String("match", s.MatchID),
				zap.String("participant", id),
				zap.String("ballot", b),
				zap.Int("mission", s.MissionNumber),
			)
		}
		ballots = append(ballots, b)
	}

	t := TallyMission(ballots, len(s.Participants), s.MissionNumber)
	s.MissionHistory = append(s.MissionHistory, t.Outcome)
	if t.Fails > 1 {
		s.LargeMarginFails = append(s.LargeMarginFails, s.MissionNumber)
	}

	events := []Event{
		{Type: EvtMissionResolved, Outcome: string(t.Outcome), Text: fmt.Sprintf("Mission %d %s with %d fail(s).", s.MissionNumber, t.Outcome, t.Fails)},
	}

	switch {
	case s.countOutcomes(OutcomeFailed) >= WinsNeeded:
		return append(events, e.finish(s, AllianceSpy, "Mission fails.")...)
	case s.countOutcomes(OutcomeSucceeded) >= WinsNeeded:
		return append(events, e.finish(s, AllianceResistance, "Mission successes.")...)
	}

	s.MissionNumber++
	s.PickNumber = 1
	s.TeamLeader = e.advanceLeader(s)
	s.Hammer = hammerFor(s.TeamLeader, len(s.Participants))
	s.ProposedTeam = nil
	s.Votes = nil
	s.MissionVotes = nil
	s.Phase = PhasePickingTeam
	return append(events, PhaseChanged(s.Phase))
}
