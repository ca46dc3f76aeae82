package plugin

import (
	"github.com/pboyd/animlimit/hook"
	"github.com/pboyd/animlimit/limit"
)

const (
	// SiteAnimationLimit yields the maximum number of animation files.
	SiteAnimationLimit hook.SiteID = "animation-limit check"
	// SiteTableCapacity sizes the animation file table.
	SiteTableCapacity hook.SiteID = "animation-table capacity"

	// HostDefaultLimit is the ceiling hardcoded in the host.
	HostDefaultLimit = 65535

	siteLength = 16
)

// Binding ties a site to the logic it is diverted into. Original is nil or
// a pointer to a func variable that is bound to the displaced host code.
type Binding struct {
	Spec     hook.SiteSpec
	Logic    any
	Original any
}

// DefaultBindings returns the hooks that make the host use state as its
// animation limit. hostLimit is the value the host would use on its own.
func DefaultBindings(state *limit.State, hostLimit int) []Binding {
	sub := limit.NewSubstitution(state, hostLimit)

	return []Binding{
		{
			Spec:     hook.SiteSpec{ID: SiteAnimationLimit, Length: siteLength, Capability: hook.Detour},
			Logic:    sub.Limit,
			Original: &sub.Original,
		},
		{
			Spec:  hook.SiteSpec{ID: SiteTableCapacity, Length: siteLength, Capability: hook.Replace},
			Logic: limit.Capacity(state, hostLimit),
		},
	}
}
