package trampoline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pboyd/malloc"
)

// SlotSize is the fixed size of every trampoline slot. It covers the longest
// displaced sequence a site may declare after relocation, the jump back into
// the site and the relay into injected logic.
const SlotSize = 64

// Allocator hands out trampoline slots from a single executable arena that is
// reserved on first use. The arena is writable only while a slot is being
// allocated, built or released.
type Allocator struct {
	*malloc.Arena
	mprotect func(int) error
	mu       sync.Mutex
	initOnce sync.Once
	initErr  error
	mutable  bool

	capacity int
	live     map[uintptr]*Slot
}

// NewAllocator returns an allocator with room for slots trampolines.
func NewAllocator(slots int) *Allocator {
	if slots < 1 {
		slots = 1
	}
	return &Allocator{capacity: slots, live: make(map[uintptr]*Slot)}
}

func (a *Allocator) init() error {
	a.initOnce.Do(func() {
		be := malloc.MmapBackend(malloc.MmapProt(protExec), malloc.MmapFlags(map32bit))
		if protBE, ok := be.(malloc.ProtectedArenaBackend); ok {
			a.mprotect = protBE.Protect
		} else {
			a.mprotect = func(int) error {
				return nil
			}
		}

		a.Arena = malloc.NewArena(uint64(a.capacity*SlotSize), malloc.Backend(be))
		if a.Arena == nil {
			a.initErr = errors.New("unable to initialize arena")
			return
		}
		a.mutable = true
	})
	return a.initErr
}

func (a *Allocator) beginMutate() error {
	if a.mutable {
		return nil
	}

	err := a.mprotect(protRWX)
	if err == nil {
		a.mutable = true
	}
	return err
}

func (a *Allocator) endMutate() error {
	if !a.mutable {
		return nil
	}

	err := a.mprotect(protRX)
	if err == nil {
		a.mutable = false
	}
	return err
}

// mutate runs fn with the arena writable. a.mu must be held.
func (a *Allocator) mutate(fn func() error) error {
	if err := a.beginMutate(); err != nil {
		return fmt.Errorf("unable to unprotect arena: %w", err)
	}
	fnErr := fn()
	if err := a.endMutate(); err != nil {
		return errors.Join(fnErr, fmt.Errorf("unable to protect arena: %w", err))
	}
	return fnErr
}

// Capacity returns the total number of slots.
func (a *Allocator) Capacity() int {
	return a.capacity
}

// InUse returns the number of slots currently allocated.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Allocate returns a slot that a rel32 jump placed anywhere in near can
// reach.
func (a *Allocator) Allocate(near Span) (*Slot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.init(); err != nil {
		return nil, fmt.Errorf("error initializing allocator: %w", err)
	}
	if len(a.live) >= a.capacity {
		return nil, fmt.Errorf("%w: %d of %d in use", ErrSlotsExhausted, len(a.live), a.capacity)
	}

	var slot *Slot
	err := a.mutate(func() error {
		buf, err := malloc.MallocSlice[byte](a.Arena, SlotSize)
		if err != nil {
			return err
		}
		for i := range buf {
			buf[i] = opcodeINT3
		}

		s := spanOf(buf)
		if !reachable(near, s) {
			malloc.FreeSlice(a.Arena, buf)
			return fmt.Errorf("%w: slot %v from site %v", ErrOutOfReach, s, near)
		}

		slot = &Slot{alloc: a, buf: buf, span: s}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.live[slot.span.addr] = slot
	return slot, nil
}

// Release returns a slot to the arena. Nothing may execute the slot
// afterwards.
func (a *Allocator) Release(slot *Slot) error {
	if slot == nil || slot.buf == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.mutate(func() error {
		malloc.FreeSlice(a.Arena, slot.buf)
		return nil
	})
	delete(a.live, slot.span.addr)
	slot.buf = nil
	slot.span = Span{}
	return err
}

// contains reports whether s lies inside a live slot handed out by a.
func (a *Allocator) contains(s Span) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, slot := range a.live {
		if s.addr >= slot.span.addr && s.End() <= slot.span.End() {
			return true
		}
	}
	return false
}

// reachable reports whether a 5 byte jump anywhere in from can reach every
// byte of to, and the reverse.
func reachable(from, to Span) bool {
	return fitsRel32(from.addr, to.End()) && fitsRel32(from.End(), to.addr) &&
		fitsRel32(to.addr, from.End()) && fitsRel32(to.End(), from.addr)
}

func fitsRel32(from, to uintptr) bool {
	d := int64(to) - int64(from)
	return d >= -1<<31 && d < 1<<31
}

// Slot is a fixed size block of executable memory holding the relocated
// instructions of one site, a jump back into the site and a relay into the
// injected logic.
type Slot struct {
	alloc *Allocator
	buf   []byte
	span  Span
	relay int
}

// Span returns the memory backing the slot.
func (s *Slot) Span() Span { return s.span }

// Entry is the address of the relocated original instructions.
func (s *Slot) Entry() uintptr { return s.span.addr }

// Relay is the address of the jump into injected logic.
func (s *Slot) Relay() uintptr { return s.span.addr + uintptr(s.relay) }

// Build writes the slot contents. relocated must already be relocated to
// Entry. If resume is non-zero a jump to resume follows the relocated code.
// The relay loads funcval into the closure context register and jumps
// through it.
func (s *Slot) Build(relocated []byte, resume, funcval uintptr) error {
	if s.buf == nil {
		return errors.New("slot has been released")
	}

	code := make([]byte, SlotSize)
	relay, err := encodeSlot(code, s.span.addr, relocated, resume, funcval)
	if err != nil {
		return err
	}

	a := s.alloc
	a.mu.Lock()
	defer a.mu.Unlock()

	err = a.mutate(func() error {
		copy(s.buf, code)
		cacheflush(s.buf)
		return nil
	})
	if err != nil {
		return err
	}

	s.relay = relay
	return nil
}

// Code returns a copy of the slot contents.
func (s *Slot) Code() []byte {
	return s.span.Read()
}
