package symbols

import (
	"fmt"
	"os"

	"github.com/pboyd/animlimit/hook"
)

// Resolver finds code sites by symbol name.
type Resolver struct {
	Table Table
	Names map[hook.SiteID]string

	// Slide is added to every link time address.
	Slide uintptr
}

func (r *Resolver) Resolve(id hook.SiteID) (uintptr, error) {
	name, ok := r.Names[id]
	if !ok {
		return 0, hook.ErrNotFound
	}
	s, ok := r.Table.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: no symbol %q", hook.ErrNotFound, name)
	}
	return s.Addr + r.Slide, nil
}

// Executable reads the symbol table of the running program. anchor names a
// function whose loaded address is at, and is used to work out the slide.
func Executable(anchor string, at uintptr) (*Resolver, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, err
	}

	t, err := Read(path)
	if err != nil {
		return nil, err
	}

	slide, err := t.Slide(anchor, at)
	if err != nil {
		return nil, err
	}

	return &Resolver{Table: t, Slide: slide}, nil
}
