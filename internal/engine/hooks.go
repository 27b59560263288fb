package engine

// Catalog resolves role, card and special-phase behaviour from keys stored in State.
// A fresh Catalog is built per match; the engine never holds global registries.
type Catalog interface {
	Version() string
	Role(key string) (Role, bool)
	Card(key string) (Card, bool)
	SpecialPhase(p Phase) (SpecialPhase, bool)
}

type Role interface {
	Key() string
	Name() string
	Alliance() Alliance
	// See is called once per participant at assignment; the result is frozen.
	See(self Participant, all []Participant) See
}

type Card interface {
	Key() string
	Name() string
}

// Roles and cards may implement any of the optional capabilities below.

// SpecialMover may claim any action after it has been routed, including the
// internal CmdFinish trigger. Returning true stops the dispatch for that action.
type SpecialMover interface {
	CheckSpecialMove(s *State, cmd Command) ([]Event, bool)
}

// PublicProjector contributes to the rolesCards section every viewer sees.
type PublicProjector interface {
	PublicData(s State) map[string]any
}

// PrivateProjector contributes per-participant data only the given participant sees.
type PrivateProjector interface {
	PrivateData(s State, id string) map[string]any
}

// Initializer runs once after assignment.
type Initializer interface {
	Init(s *State) []Event
}

// SpecialPhase is a plugin state with its own validation and exit condition.
type SpecialPhase interface {
	Phase() Phase
	Apply(s *State, cmd Command) (PhaseResult, error)
	Buttons(s State, seat int) Buttons
	NumTargets(s State, seat int) int
	Status(s State, seat int) string
	// ShowsLastTeam swaps the proposed team for the last proposal in views.
	ShowsLastTeam() bool
}

// PhaseResult lets a special phase end the match without calling back into the engine.
type PhaseResult struct {
	Events []Event
	Finish Alliance
	HowWon string
}

type ButtonState struct {
	Hidden   bool   `json:"hidden"`
	Disabled bool   `json:"disabled"`
	Text     string `json:"setText"`
}

type Buttons struct {
	Green ButtonState `json:"green"`
	Red   ButtonState `json:"red"`
}

func HiddenButtons() Buttons {
	return Buttons{
		Green: ButtonState{Hidden: true, Disabled: true},
		Red:   ButtonState{Hidden: true, Disabled: true},
	}
}

// SelectButtons is the usual single green action button with red hidden.
func SelectButtons(text string) Buttons {
	return Buttons{
		Green: ButtonState{Text: text},
		Red:   ButtonState{Hidden: true, Disabled: true},
	}
}
