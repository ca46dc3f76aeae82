package hook

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"unsafe"

	"github.com/pboyd/animlimit/trampoline"
)

// Installer patches code sites, and keeps track of them so no address is
// ever patched twice.
type Installer struct {
	alloc *trampoline.Allocator

	mu    sync.Mutex
	hooks map[uintptr]*PatchRecord
}

// NewInstaller returns an installer that takes trampoline slots from alloc.
func NewInstaller(alloc *trampoline.Allocator) *Installer {
	return &Installer{
		alloc: alloc,
		hooks: make(map[uintptr]*PatchRecord),
	}
}

// Install prepares and commits a hook in one step. See Prepare for the
// meaning of logic and original.
func (in *Installer) Install(site CodeSite, logic, original any) (*PatchRecord, error) {
	rec, err := in.Prepare(site, logic, original)
	if err != nil {
		return nil, err
	}
	return rec, in.Commit(rec)
}

// Prepare builds the trampoline for site without touching the site itself.
//
// logic is the function the site is diverted to; it must have the exact
// signature the host calls the site with. original is either nil or a
// pointer to a variable of the same func type, which is set to a function
// that runs the displaced instructions and continues into the site. Only
// Detour sites can provide an original.
func (in *Installer) Prepare(site CodeSite, logic, original any) (*PatchRecord, error) {
	ov, err := checkTypes(site, logic, original)
	if err != nil {
		return nil, &PatchError{Site: site.ID, Err: err}
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if _, ok := in.hooks[site.Span.Addr()]; ok {
		return nil, &PatchError{Site: site.ID, Err: ErrDoubleHook}
	}
	if site.Length < trampoline.Footprint {
		return nil, &PatchError{
			Site: site.ID,
			Err:  fmt.Errorf("%w: declared %d bytes, hook needs %d", trampoline.ErrSiteTooShort, site.Length, trampoline.Footprint),
		}
	}

	// Measure only decodes within the declared length, so the displaced
	// instructions never extend past it.
	code := site.Span.Read()
	n, err := trampoline.Measure(code)
	if err != nil {
		return nil, &PatchError{Site: site.ID, Err: err}
	}

	rec := &PatchRecord{
		Site:     site,
		Original: bytes.Clone(code[:n]),
		Status:   Pending,
		logic:    logic,
	}

	for _, other := range in.hooks {
		if other.Target().Overlaps(rec.Target()) {
			return nil, &PatchError{Site: site.ID, Err: fmt.Errorf("%w: overlaps %q", ErrDoubleHook, other.Site.ID)}
		}
	}

	slot, err := in.alloc.Allocate(rec.Target())
	if err != nil {
		return nil, &AllocationError{Site: site.ID, Err: err}
	}

	err = buildSlot(rec, slot)
	if err != nil {
		in.alloc.Release(slot)
		return nil, &PatchError{Site: site.ID, Err: err}
	}
	rec.slot = slot

	if ov.IsValid() {
		rec.original = bindOriginal(ov, slot.Entry())
	}

	in.hooks[site.Span.Addr()] = rec
	return rec, nil
}

func buildSlot(rec *PatchRecord, slot *trampoline.Slot) error {
	site := rec.Site

	var (
		relocated []byte
		resume    uintptr
		err       error
	)
	if site.Capability == Detour {
		relocated, err = trampoline.Relocate(rec.Original, site.Span.Addr(), slot.Entry())
		if err != nil {
			return err
		}
		resume = rec.Target().End()
	}

	err = slot.Build(relocated, resume, funcval(rec.logic))
	if err != nil {
		return err
	}

	rec.Patched, err = trampoline.JumpPatch(rec.Target(), slot.Relay())
	return err
}

// Commit writes a prepared hook over its site. On failure nothing of the
// patch is left at the site and the record is marked Failed.
func (in *Installer) Commit(rec *PatchRecord) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if rec.Status != Pending {
		return &PatchError{Site: rec.Site.ID, Err: fmt.Errorf("%w: commit of %s record", ErrBadStatus, rec.Status)}
	}

	target := rec.Target()
	if !bytes.Equal(target.Read(), rec.Original) {
		return in.fail(rec, ErrSiteChanged)
	}

	if err := target.Write(rec.Patched); err != nil {
		// The copy may have happened before protection could be restored.
		if !bytes.Equal(target.Read(), rec.Original) {
			if rbErr := target.Write(rec.Original); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
		return in.fail(rec, err)
	}

	rec.Status = Installed
	return nil
}

func (in *Installer) fail(rec *PatchRecord, err error) error {
	perr := &PatchError{Site: rec.Site.ID, Err: err}
	rec.Status = Failed
	rec.Err = perr
	in.release(rec)
	return perr
}

// Restore writes the original bytes back over an installed hook. Nothing may
// be executing the trampoline when it is called.
func (in *Installer) Restore(rec *PatchRecord) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if rec.Status != Installed {
		return &PatchError{Site: rec.Site.ID, Err: fmt.Errorf("%w: restore of %s record", ErrBadStatus, rec.Status)}
	}

	if err := rec.Target().Write(rec.Original); err != nil {
		return &PatchError{Site: rec.Site.ID, Err: err}
	}

	rec.Status = Restored
	in.release(rec)
	return nil
}

// Discard drops a prepared hook that was never committed.
func (in *Installer) Discard(rec *PatchRecord) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if rec.Status != Pending {
		return
	}
	rec.Status = Failed
	rec.Err = ErrDiscarded
	in.release(rec)
}

// release frees the slot and forgets the record. in.mu must be held.
func (in *Installer) release(rec *PatchRecord) {
	if in.hooks[rec.Site.Span.Addr()] == rec {
		delete(in.hooks, rec.Site.Span.Addr())
	}
	in.alloc.Release(rec.slot)
	rec.slot = nil
}

// Records returns the pending and installed hooks ordered by address.
func (in *Installer) Records() []*PatchRecord {
	in.mu.Lock()
	defer in.mu.Unlock()

	recs := make([]*PatchRecord, 0, len(in.hooks))
	for _, rec := range in.hooks {
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b *PatchRecord) int {
		return int(a.Site.Span.Addr()) - int(b.Site.Span.Addr())
	})
	return recs
}

func checkTypes(site CodeSite, logic, original any) (reflect.Value, error) {
	lv := reflect.ValueOf(logic)
	if lv.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("%w: logic kind %v", ErrInputType, lv.Kind())
	}
	if lv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: logic is nil", ErrInputType)
	}

	if original == nil {
		return reflect.Value{}, nil
	}
	if site.Capability != Detour {
		return reflect.Value{}, ErrNotResumable
	}

	ov := reflect.ValueOf(original)
	if ov.Kind() != reflect.Pointer || ov.IsNil() || ov.Elem().Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("%w: original must be a pointer to a func variable, got %T", ErrInputType, original)
	}
	if ov.Elem().Type() != lv.Type() {
		return reflect.Value{}, fmt.Errorf("%w: %w", ErrDifferentType, diffFuncs(ov.Elem().Type(), lv.Type()).Error())
	}

	return ov, nil
}

type eface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// funcval returns the address a func value points to. Its first word is the
// code pointer; calls load it with DX pointing at the funcval, which is how
// closures find their captured variables.
func funcval(fn any) uintptr {
	return uintptr((*eface)(unsafe.Pointer(&fn)).data)
}

// bindOriginal sets the func variable ptr points to so that calling it runs
// the code at entry. The returned funcval must stay reachable while the
// variable is in use.
func bindOriginal(ptr reflect.Value, entry uintptr) *uintptr {
	fv := new(uintptr)
	*fv = entry

	// A func value is a single pointer to its funcval, so the address of
	// fv is the address of a func value.
	fn := reflect.NewAt(ptr.Type().Elem(), unsafe.Pointer(&fv)).Elem()
	ptr.Elem().Set(fn)
	return fv
}
