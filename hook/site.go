package hook

import (
	"fmt"
	"reflect"

	"github.com/pboyd/animlimit/trampoline"
)

// SiteID names a code site independently of where it lives in a particular
// host build.
type SiteID string

// Capability is the kind of redirection a site needs.
type Capability int

const (
	// Detour diverts the site into injected logic while keeping the
	// original instructions callable through the trampoline.
	Detour Capability = iota
	// Replace diverts the site into injected logic for good. Nothing of
	// the original is kept callable.
	Replace
)

func (c Capability) String() string {
	switch c {
	case Detour:
		return "detour"
	case Replace:
		return "replace"
	default:
		return fmt.Sprintf("Capability(%d)", int(c))
	}
}

// SiteSpec describes a site before it is resolved. Length is the number of
// bytes at the site that may be displaced; the whole instructions a hook
// covers must fit in it.
type SiteSpec struct {
	ID         SiteID
	Length     int
	Capability Capability
}

// CodeSite is a SiteSpec resolved against the running host.
type CodeSite struct {
	SiteSpec
	Span trampoline.Span
}

// Resolve finds the site with r.
func (s SiteSpec) Resolve(r Resolver) (CodeSite, error) {
	addr, err := r.Resolve(s.ID)
	if err != nil {
		return CodeSite{}, &ResolutionError{Site: s.ID, Err: err}
	}
	if addr == 0 {
		return CodeSite{}, &ResolutionError{Site: s.ID, Err: ErrNotFound}
	}
	return CodeSite{SiteSpec: s, Span: trampoline.SpanAt(addr, s.Length)}, nil
}

func (s CodeSite) String() string {
	return fmt.Sprintf("%s (%s at %v)", s.ID, s.Capability, s.Span)
}

// FuncAddr returns the entry address of the function fn, or 0 if fn is not a
// function.
func FuncAddr(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return 0
	}
	return v.Pointer()
}
