// Package symbols reads symbol tables from object files so code sites can be
// found by name.
package symbols

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Symbol is one entry of an object file's symbol table. Addr is the link
// time address.
type Symbol struct {
	Name string
	Addr uintptr
	Size uint64
}

// Table is a symbol table sorted by name.
type Table []Symbol

type rawFile interface {
	Symbols() ([]Symbol, error)
}

var objType = []func(io.ReaderAt) (rawFile, error){
	openElf,
	openMacho,
	openPE,
}

// ErrUnrecognized means a file is not in any supported object format.
var ErrUnrecognized = errors.New("unrecognized object file")

// Read returns the symbol table of the object file at name.
func Read(name string) (Table, error) {
	r, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return read(r, name)
}

func read(r io.ReaderAt, name string) (Table, error) {
	var errs []error
	for _, try := range objType {
		raw, err := try(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		syms, err := raw.Symbols()
		if err != nil {
			return nil, fmt.Errorf("read symbols %s: %w", name, err)
		}
		t := Table(syms)
		slices.SortFunc(t, func(a, b Symbol) int {
			return strings.Compare(a.Name, b.Name)
		})
		return t, nil
	}
	return nil, fmt.Errorf("open %s: %w: %w", name, ErrUnrecognized, errors.Join(errs...))
}

// Lookup returns the symbol called name.
func (t Table) Lookup(name string) (Symbol, bool) {
	i, ok := slices.BinarySearchFunc(t, name, func(s Symbol, name string) int {
		return strings.Compare(s.Name, name)
	})
	if !ok {
		return Symbol{}, false
	}
	return t[i], true
}

// Match returns the symbols whose name contains substr.
func (t Table) Match(substr string) Table {
	var out Table
	for _, s := range t {
		if strings.Contains(s.Name, substr) {
			out = append(out, s)
		}
	}
	return out
}

// Slide returns the difference between where the symbol called name was
// loaded and where it was linked.
func (t Table) Slide(name string, loaded uintptr) (uintptr, error) {
	s, ok := t.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("no symbol %q", name)
	}
	return loaded - s.Addr, nil
}
