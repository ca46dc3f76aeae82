// Package limit holds the logic that is diverted into from the host's
// animation limit sites. Everything here runs on host threads in place of
// host code, so it must not allocate, block or log.
package limit

import "strconv"

// State is the configured animation limit override. It is built once before
// hooks are installed and never changes afterwards.
type State struct {
	value int
	set   bool
}

// New returns a State overriding the host limit with value. Negative values
// leave the limit unset.
func New(value int) *State {
	if value < 0 {
		return Unset()
	}
	return &State{value: value, set: true}
}

// Unset returns a State that keeps the host limit.
func Unset() *State {
	return &State{}
}

// Override returns the configured value, and whether there is one. Zero is
// a valid override.
func (s *State) Override() (int, bool) {
	if s == nil {
		return 0, false
	}
	return s.value, s.set
}

// Resolve returns the override if one is set, and original otherwise.
func (s *State) Resolve(original int) int {
	if v, ok := s.Override(); ok {
		return v
	}
	return original
}

func (s *State) String() string {
	v, ok := s.Override()
	if !ok {
		return "unset"
	}
	return strconv.Itoa(v)
}

// Substitution stands in for the host routine that yields the animation
// limit.
type Substitution struct {
	state    *State
	fallback int

	// Original runs the host routine. It is bound when the hook is
	// installed.
	Original func() int
}

// NewSubstitution returns a Substitution for state. fallback is returned when
// no override is set and Original has not been bound.
func NewSubstitution(state *State, fallback int) *Substitution {
	return &Substitution{state: state, fallback: fallback}
}

// Limit returns the override, or what the host would have returned.
func (s *Substitution) Limit() int {
	if v, ok := s.state.Override(); ok {
		return v
	}
	if s.Original == nil {
		return s.fallback
	}
	return s.Original()
}

// Capacity returns a replacement for the host routine that sizes the
// animation table: requests are clamped to [0, limit], where limit is the
// override or hostDefault.
func Capacity(state *State, hostDefault int) func(requested int) int {
	ceiling := max(state.Resolve(hostDefault), 0)
	return func(requested int) int {
		return min(max(requested, 0), ceiling)
	}
}
