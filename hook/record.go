package hook

import (
	"fmt"

	"github.com/pboyd/animlimit/trampoline"
)

// Status is the installation state of a PatchRecord.
type Status int

const (
	Pending Status = iota
	Installed
	Failed
	Restored
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Installed:
		return "installed"
	case Failed:
		return "failed"
	case Restored:
		return "restored"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// PatchRecord binds one code site to its trampoline slot.
type PatchRecord struct {
	Site CodeSite

	// Original holds the displaced bytes, captured before anything was
	// written. Patched holds the bytes that replace them. Both cover
	// whole instructions and have the same length.
	Original []byte
	Patched  []byte

	Status Status
	Err    error

	slot *trampoline.Slot

	// Keep the injected func value and the one built for the original
	// reachable for as long as the slot refers to them.
	logic    any
	original *uintptr
}

// Slot returns the trampoline slot the site jumps to.
func (r *PatchRecord) Slot() *trampoline.Slot {
	return r.slot
}

// Target returns the part of the site that is overwritten.
func (r *PatchRecord) Target() trampoline.Span {
	return r.Site.Span.Sub(0, len(r.Original))
}

func (r *PatchRecord) String() string {
	return fmt.Sprintf("%v: %s", r.Site, r.Status)
}
