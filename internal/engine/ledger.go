package engine

import "slices"

const (
	TagPicked = "picked"
	TagLeader = "leader"
)

// VoteLedger is the append-only history per participant, indexed by
// [mission-1][pick-1]. Each cell holds the tags recorded for that pick.
type VoteLedger map[string][][][]string

// Ensure creates empty cells for (mission, pick) for every id. Existing cells are kept.
func (l VoteLedger) Ensure(ids []string, mission, pick int) {
	for _, id := range ids {
		rows := l[id]
		for len(rows) < mission {
			rows = append(rows, nil)
		}
		for len(rows[mission-1]) < pick {
			rows[mission-1] = append(rows[mission-1], []string{})
		}
		l[id] = rows
	}
}

func (l VoteLedger) Append(id string, mission, pick int, tag string) {
	l.Ensure([]string{id}, mission, pick)
	l[id][mission-1][pick-1] = append(l[id][mission-1][pick-1], tag)
}

// Cell returns the tags recorded for (id, mission, pick), or nil.
func (l VoteLedger) Cell(id string, mission, pick int) []string {
	rows := l[id]
	if mission < 1 || mission > len(rows) {
		return nil
	}
	if pick < 1 || pick > len(rows[mission-1]) {
		return nil
	}
	return rows[mission-1][pick-1]
}

func (l VoteLedger) Clone() VoteLedger {
	if l == nil {
		return nil
	}
	c := make(VoteLedger, len(l))
	for id, rows := range l {
		cr := make([][][]string, len(rows))
		for m, picks := range rows {
			cr[m] = make([][]string, len(picks))
			for p, tags := range picks {
				cr[m][p] = slices.Clone(tags)
			}
		}
		c[id] = cr
	}
	return c
}

func recordTeamPick(s *State) {
	ids := participantIDs(s.Participants)
	s.Ledger.Ensure(ids, s.MissionNumber, s.PickNumber)
	leader := s.Leader().ID
	for _, id := range ids {
		if s.OnTeam(id) {
			s.Ledger.Append(id, s.MissionNumber, s.PickNumber, TagPicked)
		}
		if id == leader {
			s.Ledger.Append(id, s.MissionNumber, s.PickNumber, TagLeader)
		}
	}
}

func recordTeamVotes(s *State) {
	ids := participantIDs(s.Participants)
	s.Ledger.Ensure(ids, s.MissionNumber, s.PickNumber)
	for i, id := range ids {
		s.Ledger.Append(id, s.MissionNumber, s.PickNumber, string(s.Votes[i]))
	}
}

func participantIDs(ps []Participant) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}
