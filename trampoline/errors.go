package trampoline

import "errors"

var (
	// ErrOutOfReach means two addresses are too far apart for a rel32
	// operand.
	ErrOutOfReach = errors.New("address out of rel32 reach")
	// ErrSlotsExhausted means every slot in the arena is in use.
	ErrSlotsExhausted = errors.New("trampoline slots exhausted")
	// ErrSlotOverflow means the relocated code does not fit in a slot.
	ErrSlotOverflow = errors.New("trampoline slot overflow")
	// ErrNotRelocatable means an instruction cannot be moved to a slot.
	ErrNotRelocatable = errors.New("instruction not relocatable")
	// ErrSiteTooShort means a hook would split an instruction past the end
	// of the code site.
	ErrSiteTooShort = errors.New("code site too short for hook")
	// ErrUnsupportedArch is returned on architectures without an encoder.
	ErrUnsupportedArch = errors.New("unsupported architecture")
)
