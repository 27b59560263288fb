package engine

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

type PlayerRole struct {
	Alliance Alliance `json:"alliance"`
	Role     string   `json:"role"`
}

// MatchRecord is the immutable summary handed to storage once a match finishes.
type MatchRecord struct {
	MatchID          string                `json:"matchId"`
	CatalogVersion   string                `json:"catalogVersion"`
	StartedAt        time.Time             `json:"timeGameStarted"`
	FinishedAt       time.Time             `json:"timeGameFinished"`
	Winner           Alliance              `json:"winningTeam"`
	HowWon           string                `json:"howTheGameWasWon"`
	SpyTeam          []string              `json:"spyTeam"`
	ResistanceTeam   []string              `json:"resistanceTeam"`
	NumberOfPlayers  int                   `json:"numberOfPlayers"`
	Roles            []string              `json:"roles"`
	Cards            []string              `json:"cards"`
	MissionHistory   []MissionOutcome      `json:"missionHistory"`
	VoteHistory      VoteLedger            `json:"voteHistory"`
	PlayerRoles      map[string]PlayerRole `json:"playerRoles"`
	LargeMarginFails []int                 `json:"moreThanOneFailMissions"`
	Extras           map[string]any        `json:"extras,omitempty"`
}

// OutcomeDelta is one participant's contribution to lifetime statistics.
type OutcomeDelta struct {
	ParticipantID string        `json:"participantId"`
	Alliance      Alliance      `json:"alliance"`
	Role          string        `json:"role"`
	Won           bool          `json:"won"`
	Bucket        string        `json:"bucket"`
	Duration      time.Duration `json:"duration"`
}

func PlayerCountBucket(n int) string { return fmt.Sprintf("%dp", n) }

func (e *Engine) Record(s State) MatchRecord {
	r := MatchRecord{
		MatchID:          s.MatchID,
		CatalogVersion:   e.catalog.Version(),
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
		Winner:           s.Winner,
		HowWon:           s.HowWon,
		SpyTeam:          s.Spies(),
		ResistanceTeam:   s.Resistance(),
		NumberOfPlayers:  len(s.Participants),
		Roles:            append(slices.Clone(s.ResistanceRoles), s.SpyRoles...),
		Cards:            slices.Clone(s.CardKeys),
		MissionHistory:   slices.Clone(s.MissionHistory),
		VoteHistory:      s.Ledger.Clone(),
		PlayerRoles:      make(map[string]PlayerRole, len(s.Participants)),
		LargeMarginFails: slices.Clone(s.LargeMarginFails),
	}
	for _, p := range s.Participants {
		r.PlayerRoles[p.ID] = PlayerRole{Alliance: p.Alliance, Role: p.Role}
	}
	pd := e.publicData(s)
	if len(pd.Roles)+len(pd.Cards) > 0 {
		r.Extras = map[string]any{}
		maps.Copy(r.Extras, pd.Roles)
		maps.Copy(r.Extras, pd.Cards)
	}
	return r
}

func (e *Engine) OutcomeDeltas(s State) []OutcomeDelta {
	bucket := PlayerCountBucket(len(s.Participants))
	d := s.FinishedAt.Sub(s.StartedAt)
	out := make([]OutcomeDelta, len(s.Participants))
	for i, p := range s.Participants {
		out[i] = OutcomeDelta{
			ParticipantID: p.ID,
			Alliance:      p.Alliance,
			Role:          p.RoleKey,
			Won:           p.Alliance == s.Winner,
			Bucket:        bucket,
			Duration:      d,
		}
	}
	return out
}
