package hook

import "fmt"

// Resolver maps a site to its address in the running host.
type Resolver interface {
	Resolve(id SiteID) (uintptr, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(id SiteID) (uintptr, error)

func (f ResolverFunc) Resolve(id SiteID) (uintptr, error) {
	return f(id)
}

// MapResolver resolves sites from a fixed table of absolute addresses.
type MapResolver map[SiteID]uintptr

func (m MapResolver) Resolve(id SiteID) (uintptr, error) {
	addr, ok := m[id]
	if !ok || addr == 0 {
		return 0, ErrNotFound
	}
	return addr, nil
}

// OffsetResolver resolves sites from per-version tables of offsets relative
// to the host image base.
type OffsetResolver struct {
	Base    uintptr
	Version string
	Offsets map[string]map[SiteID]uintptr
}

func (r *OffsetResolver) Resolve(id SiteID) (uintptr, error) {
	table, ok := r.Offsets[r.Version]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnsupportedVersion, r.Version)
	}
	off, ok := table[id]
	if !ok {
		return 0, ErrNotFound
	}
	return r.Base + off, nil
}
