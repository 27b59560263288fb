package engine

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultResistanceRole = "resistance"
	DefaultSpyRole        = "spy"
)

func newRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to the runtime source.
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// Start assigns alliances and roles to the locked roster and returns the initial
// match state. options holds role and card keys; unknown keys are logged and ignored.
func (e *Engine) Start(matchID string, roster []Seat, options []string) (State, []Event, error) {
	n := len(roster)
	template, err := AllianceTemplate(n)
	if err != nil {
		return State{}, nil, fmt.Errorf("%w: %d players, need %d-%d", ErrInvalidPlayerCount, n, MinPlayers, MaxPlayers)
	}
	seen := make(map[string]bool, n)
	for _, seat := range roster {
		if seat.ID == "" || seen[seat.ID] {
			return State{}, nil, fmt.Errorf("%w: duplicate or empty seat %q", ErrInvalidAction, seat.ID)
		}
		seen[seat.ID] = true
	}
	defaults := map[Alliance]Role{}
	for alliance, key := range map[Alliance]string{AllianceResistance: DefaultResistanceRole, AllianceSpy: DefaultSpyRole} {
		r, ok := e.catalog.Role(key)
		if !ok {
			return State{}, nil, fmt.Errorf("%w: catalog %s has no %q role", ErrConfiguration, e.catalog.Version(), key)
		}
		defaults[alliance] = r
	}

	s := State{
		MatchID:      matchID,
		Phase:        PhasePickingTeam,
		Rules:        e.rules,
		Participants: make([]Participant, n),
		Ledger:       VoteLedger{},
		StartedAt:    e.now(),
	}

	// Alliance only: the template entry at perm[i] goes to seat i.
	perm := e.rng.Perm(n)
	for i, seat := range roster {
		s.Participants[i] = Participant{ID: seat.ID, Name: seat.Name, Alliance: template[perm[i]]}
	}

	pools, cardKeys := e.selectOptions(options)
	s.CardKeys = cardKeys
	for _, alliance := range []Alliance{AllianceResistance, AllianceSpy} {
		assigned := e.assignRoles(&s, alliance, pools[alliance])
		for _, r := range assigned {
			s.RoleKeys = append(s.RoleKeys, r.Key())
			if alliance == AllianceResistance {
				s.ResistanceRoles = append(s.ResistanceRoles, r.Name())
			} else {
				s.SpyRoles = append(s.SpyRoles, r.Name())
			}
		}
	}
	slices.Sort(s.RoleKeys)

	for i := range s.Participants {
		p := &s.Participants[i]
		if p.RoleKey == "" {
			r := defaults[p.Alliance]
			p.RoleKey, p.Role = r.Key(), r.Name()
		}
	}
	// Frozen for the rest of the match.
	for i := range s.Participants {
		r, _ := e.catalog.Role(s.Participants[i].RoleKey)
		s.Participants[i].See = r.See(s.Participants[i], s.Participants)
	}

	s.TeamLeader = e.rng.IntN(n)
	s.Hammer = hammerFor(s.TeamLeader, n)
	s.MissionNumber = 1
	s.PickNumber = 1
	for _, p := range s.Participants {
		s.Ledger[p.ID] = [][][]string{}
	}

	events := []Event{{Type: EvtMatchStarted}, Message(e.startMessage(s))}
	roles, cards := e.hooks(s)
	for _, h := range append(roles, cards...) {
		if in, ok := h.(Initializer); ok {
			events = append(events, in.Init(&s)...)
		}
	}
	events = append(events, PhaseChanged(s.Phase))

	e.log.Info("match started",
		zap.String("match", matchID),
		zap.Int("players", n),
		zap.Strings("roles", s.RoleKeys),
		zap.Strings("cards", s.CardKeys),
	)
	return s, events, nil
}

// selectOptions splits the selection into per-alliance role pools and card keys.
func (e *Engine) selectOptions(options []string) (map[Alliance][]Role, []string) {
	pools := map[Alliance][]Role{}
	var cards []string
	picked := map[string]bool{}
	for _, opt := range options {
		if r, ok := e.catalog.Role(opt); ok {
			if picked[r.Key()] || r.Key() == DefaultResistanceRole || r.Key() == DefaultSpyRole {
				continue
			}
			picked[r.Key()] = true
			switch r.Alliance() {
			case AllianceResistance, AllianceSpy:
				pools[r.Alliance()] = append(pools[r.Alliance()], r)
			default:
				e.log.Warn("role has no alliance", zap.String("role", r.Key()))
			}
			continue
		}
		if c, ok := e.catalog.Card(opt); ok {
			if !picked[c.Key()] {
				picked[c.Key()] = true
				cards = append(cards, c.Key())
			}
			continue
		}
		// Anything else rides along as a match-wide card with no hooks.
		key := strings.ToLower(strings.TrimSpace(opt))
		if key == "" || picked[key] {
			continue
		}
		picked[key] = true
		cards = append(cards, key)
		e.log.Warn("unknown selection kept as inert card", zap.String("option", opt))
	}
	slices.Sort(cards)
	return pools, cards
}

// assignRoles shuffles the alliance's seats and its role pool independently and
// zips them together. Roles beyond the alliance size are left out of play.
func (e *Engine) assignRoles(s *State, alliance Alliance, pool []Role) []Role {
	var seats []int
	for i, p := range s.Participants {
		if p.Alliance == alliance {
			seats = append(seats, i)
		}
	}
	e.rng.Shuffle(len(seats), func(i, j int) { seats[i], seats[j] = seats[j], seats[i] })
	pool = slices.Clone(pool)
	e.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	var assigned []Role
	for i, r := range pool {
		if i >= len(seats) {
			e.log.Info("role dropped, not enough seats in alliance",
				zap.String("role", r.Key()),
				zap.String("alliance", string(alliance)),
			)
			continue
		}
		p := &s.Participants[seats[i]]
		p.RoleKey, p.Role = r.Key(), r.Name()
		assigned = append(assigned, r)
	}
	return assigned
}

func (e *Engine) startMessage(s State) string {
	names := append(slices.Clone(s.ResistanceRoles), s.SpyRoles...)
	for _, key := range s.CardKeys {
		if c, ok := e.catalog.Card(key); ok {
			names = append(names, c.Name())
		} else {
			names = append(names, key)
		}
	}
	if len(names) == 0 {
		return "Match started with no special roles."
	}
	return "Match started with: " + strings.Join(names, ", ") + "."
}
