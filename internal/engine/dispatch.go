package engine

// dispatch offers cmd to every role in play, then every card in play. Roles
// always go first; the first hook that claims the action stops the dispatch.
func (e *Engine) dispatch(s *State, cmd Command) ([]Event, bool) {
	for _, m := range e.specialMovers(*s) {
		if events, ok := m.CheckSpecialMove(s, cmd); ok {
			return events, true
		}
	}
	return nil, false
}

func (e *Engine) specialMovers(s State) []SpecialMover {
	var out []SpecialMover
	for _, key := range s.RoleKeys {
		r, ok := e.catalog.Role(key)
		if !ok {
			continue
		}
		if m, ok := r.(SpecialMover); ok {
			out = append(out, m)
		}
	}
	for _, key := range s.CardKeys {
		c, ok := e.catalog.Card(key)
		if !ok {
			continue
		}
		if m, ok := c.(SpecialMover); ok {
			out = append(out, m)
		}
	}
	return out
}

// hooks returns every role then card in play, for the optional capabilities.
func (e *Engine) hooks(s State) (roles, cards []any) {
	for _, key := range s.RoleKeys {
		if r, ok := e.catalog.Role(key); ok {
			roles = append(roles, r)
		}
	}
	for _, key := range s.CardKeys {
		if c, ok := e.catalog.Card(key); ok {
			cards = append(cards, c)
		}
	}
	return roles, cards
}
