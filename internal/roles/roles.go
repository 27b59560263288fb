package roles

import (
	"slices"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
)

type seeFunc func(self engine.Participant, all []engine.Participant) engine.See

type basicRole struct {
	key      string
	name     string
	alliance engine.Alliance
	see      seeFunc
}

func (r basicRole) Key() string               { return r.key }
func (r basicRole) Name() string              { return r.name }
func (r basicRole) Alliance() engine.Alliance { return r.alliance }

func (r basicRole) See(self engine.Participant, all []engine.Participant) engine.See {
	return r.see(self, all)
}

func seeNothing(engine.Participant, []engine.Participant) engine.See { return engine.See{} }

// Spies know each other, except Oberon who stays hidden from them.
func seeSpies(_ engine.Participant, all []engine.Participant) engine.See {
	var spies []string
	for _, p := range all {
		if p.Alliance == engine.AllianceSpy && p.RoleKey != KeyOberon {
			spies = append(spies, p.ID)
		}
	}
	return engine.See{Spies: spies}
}

func seeSpiesButMordred(_ engine.Participant, all []engine.Participant) engine.See {
	var spies []string
	for _, p := range all {
		if p.Alliance == engine.AllianceSpy && p.RoleKey != KeyMordred {
			spies = append(spies, p.ID)
		}
	}
	return engine.See{Spies: spies}
}

// Percival sees Merlin and Morgana without telling them apart. Sorted so seat order leaks nothing.
func seeMerlins(_ engine.Participant, all []engine.Participant) engine.See {
	var merlins []string
	for _, p := range all {
		if p.RoleKey == KeyMerlin || p.RoleKey == KeyMorgana {
			merlins = append(merlins, p.ID)
		}
	}
	slices.Sort(merlins)
	return engine.See{Merlins: merlins}
}

func seeSelf(self engine.Participant, _ []engine.Participant) engine.See {
	return engine.See{Spies: []string{self.ID}}
}
