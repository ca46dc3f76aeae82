package hook

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the resolver has no address for a site.
	ErrNotFound = errors.New("code site not found")
	// ErrUnsupportedVersion means the resolver does not know the host build.
	ErrUnsupportedVersion = errors.New("unsupported host version")
	// ErrDoubleHook means the site, or part of it, is already hooked.
	ErrDoubleHook = errors.New("double hook")
	// ErrDifferentType means logic and original are of different types.
	ErrDifferentType = errors.New("logic and original are of different types")
	// ErrInputType means logic is not a function or original is not a
	// pointer to one.
	ErrInputType = errors.New("not a function")
	// ErrNotResumable means an original was requested for a Replace site.
	ErrNotResumable = errors.New("replaced site has no original")
	// ErrSiteChanged means the site no longer holds the bytes captured when
	// the hook was prepared.
	ErrSiteChanged = errors.New("code site changed since prepare")
	// ErrDiscarded marks a prepared record that was dropped before commit.
	ErrDiscarded = errors.New("hook discarded before commit")
	// ErrBadStatus means a record is not in the state an operation needs.
	ErrBadStatus = errors.New("unexpected patch status")
)

// ResolutionError means a site could not be located in the host, most likely
// because the host build is not supported.
type ResolutionError struct {
	Site SiteID
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Site, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// AllocationError means no trampoline slot could be reserved within reach
// of a site.
type AllocationError struct {
	Site SiteID
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate trampoline for %q: %v", e.Site, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// PatchError means a site could not be measured, relocated or written.
type PatchError struct {
	Site SiteID
	Err  error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch %q: %v", e.Site, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }
