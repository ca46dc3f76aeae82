package symbols

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"io"
)

type elfFile struct {
	elf *elf.File
}

func openElf(r io.ReaderAt) (rawFile, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &elfFile{f}, nil
}

func (e *elfFile) Symbols() ([]Symbol, error) {
	elfSyms, err := e.elf.Symbols()
	if err != nil {
		return nil, err
	}

	syms := make([]Symbol, 0, len(elfSyms))
	for _, s := range elfSyms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		syms = append(syms, Symbol{Name: s.Name, Addr: uintptr(s.Value), Size: s.Size})
	}
	return syms, nil
}

type machoFile struct {
	macho *macho.File
}

func openMacho(r io.ReaderAt) (rawFile, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &machoFile{f}, nil
}

func (f *machoFile) Symbols() ([]Symbol, error) {
	if f.macho.Symtab == nil {
		return nil, nil
	}

	syms := make([]Symbol, 0, len(f.macho.Symtab.Syms))
	for _, s := range f.macho.Symtab.Syms {
		syms = append(syms, Symbol{Name: s.Name, Addr: uintptr(s.Value)})
	}
	return syms, nil
}

type peFile struct {
	pe *pe.File
}

func openPE(r io.ReaderAt) (rawFile, error) {
	f, err := pe.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &peFile{f}, nil
}

func (f *peFile) Symbols() ([]Symbol, error) {
	if f.pe.Symbols == nil {
		return nil, nil
	}

	var base uintptr
	switch oh := f.pe.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		base = uintptr(oh.ImageBase)
	case *pe.OptionalHeader64:
		base = uintptr(oh.ImageBase)
	}

	syms := make([]Symbol, 0, len(f.pe.Symbols))
	for _, s := range f.pe.Symbols {
		if s.SectionNumber <= 0 || int(s.SectionNumber) > len(f.pe.Sections) {
			continue
		}
		sect := f.pe.Sections[s.SectionNumber-1]
		syms = append(syms, Symbol{Name: s.Name, Addr: base + uintptr(sect.VirtualAddress) + uintptr(s.Value)})
	}
	return syms, nil
}
