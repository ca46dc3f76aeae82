package plugin

import "fmt"

// State is the installation state of a Plugin. Installed, Failed and
// Detached are terminal as far as InstallAllHooks is concerned.
type State int

const (
	Uninitialized State = iota
	Resolving
	Allocating
	Patching
	Installed
	Failed
	Detached
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Resolving:
		return "resolving"
	case Allocating:
		return "allocating"
	case Patching:
		return "patching"
	case Installed:
		return "installed"
	case Failed:
		return "failed"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
