// Package roles is the Avalon catalog: roles, cards and the special phases they
// contribute. A Catalog is built per match and never mutated afterwards.
package roles

import (
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"golang.org/x/text/cases"
)

const Version = "avalon/1"

const (
	KeyResistance = engine.DefaultResistanceRole
	KeySpy        = engine.DefaultSpyRole
	KeyMerlin     = "merlin"
	KeyPercival   = "percival"
	KeyAssassin   = "assassin"
	KeyMorgana    = "morgana"
	KeyMordred    = "mordred"
	KeyOberon     = "oberon"

	KeyLady = "lady"
)

const (
	PhaseAssassination engine.Phase = "assassination"
	PhaseLady          engine.Phase = "lady"
)

type Catalog struct {
	roles  map[string]engine.Role
	cards  map[string]engine.Card
	phases map[engine.Phase]engine.SpecialPhase
	fold   cases.Caser
	now    func() time.Time
}

type Option func(*Catalog)

func WithClock(now func() time.Time) Option { return func(c *Catalog) { c.now = now } }

func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		roles:  map[string]engine.Role{},
		cards:  map[string]engine.Card{},
		phases: map[engine.Phase]engine.SpecialPhase{},
		fold:   cases.Fold(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, r := range []engine.Role{
		basicRole{KeyResistance, "Resistance", engine.AllianceResistance, seeNothing},
		basicRole{KeySpy, "Spy", engine.AllianceSpy, seeSpies},
		basicRole{KeyMerlin, "Merlin", engine.AllianceResistance, seeSpiesButMordred},
		basicRole{KeyPercival, "Percival", engine.AllianceResistance, seeMerlins},
		basicRole{KeyMorgana, "Morgana", engine.AllianceSpy, seeSpies},
		basicRole{KeyMordred, "Mordred", engine.AllianceSpy, seeSpies},
		basicRole{KeyOberon, "Oberon", engine.AllianceSpy, seeSelf},
		&assassin{basicRole: basicRole{KeyAssassin, "Assassin", engine.AllianceSpy, seeSpies}, catalog: c},
	} {
		c.roles[r.Key()] = r
	}

	lady := &ladyOfTheLake{}
	c.cards[lady.Key()] = lady

	for _, p := range []engine.SpecialPhase{
		&assassinationPhase{},
		&ladyPhase{},
	} {
		c.phases[p.Phase()] = p
	}
	return c
}

func (c *Catalog) Version() string { return Version }

func (c *Catalog) normalize(key string) string {
	return c.fold.String(strings.TrimSpace(key))
}

func (c *Catalog) Role(key string) (engine.Role, bool) {
	r, ok := c.roles[c.normalize(key)]
	return r, ok
}

func (c *Catalog) Card(key string) (engine.Card, bool) {
	card, ok := c.cards[c.normalize(key)]
	return card, ok
}

func (c *Catalog) SpecialPhase(p engine.Phase) (engine.SpecialPhase, bool) {
	sp, ok := c.phases[p]
	return sp, ok
}

// Keys lists every selectable role and card key, for clients building a lobby.
func (c *Catalog) Keys() (roles, cards []string) {
	for k := range c.roles {
		if k != KeyResistance && k != KeySpy {
			roles = append(roles, k)
		}
	}
	for k := range c.cards {
		cards = append(cards, k)
	}
	slices.Sort(roles)
	slices.Sort(cards)
	return roles, cards
}
