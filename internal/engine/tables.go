package engine

const (
	MinPlayers  = 5
	MaxPlayers  = 10
	MaxMissions = 5
	MaxPicks    = 5
	WinsNeeded  = 3
)

// allianceTemplate is sliced to the first N entries for an N-player match.
var allianceTemplate = []Alliance{
	AllianceResistance,
	AllianceResistance,
	AllianceResistance,
	AllianceSpy,
	AllianceSpy,
	AllianceResistance,
	AllianceSpy,
	AllianceResistance,
	AllianceResistance,
	AllianceSpy,
}

type MissionSize struct {
	Players        int  `json:"players"`
	TwoFailsToFail bool `json:"twoFails"`
}

var missionSizes = [][MaxMissions]MissionSize{
	{{2, false}, {3, false}, {2, false}, {3, false}, {3, false}},
	{{2, false}, {3, false}, {4, false}, {3, false}, {4, false}},
	{{2, false}, {3, false}, {3, false}, {4, true}, {4, false}},
	{{3, false}, {4, false}, {4, false}, {5, true}, {5, false}},
	{{3, false}, {4, false}, {4, false}, {5, true}, {5, false}},
	{{3, false}, {4, false}, {4, false}, {5, true}, {5, false}},
}

func validPlayerCount(n int) bool { return n >= MinPlayers && n <= MaxPlayers }

// AllianceTemplate returns the alliance split for n players.
func AllianceTemplate(n int) ([]Alliance, error) {
	if !validPlayerCount(n) {
		return nil, ErrInvalidPlayerCount
	}
	return append([]Alliance(nil), allianceTemplate[:n]...), nil
}

// MissionSizes returns the team-size row for n players.
func MissionSizes(n int) []MissionSize {
	if !validPlayerCount(n) {
		return nil
	}
	row := missionSizes[n-MinPlayers]
	return row[:]
}

// TeamSize is the required proposal size for the given roster size and 1-based mission.
func TeamSize(n, mission int) int {
	if !validPlayerCount(n) || mission < 1 || mission > MaxMissions {
		return 0
	}
	return missionSizes[n-MinPlayers][mission-1].Players
}

func requiresTwoFails(n, mission int) bool {
	return n >= 7 && mission == 4
}
