package symbols

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

type elfSymbol struct {
	name string
	typ  elf.SymType
	addr uint64
	size uint64
}

// buildELF returns a minimal little endian ELF64 file whose only contents
// are a symbol table holding syms.
func buildELF(t *testing.T, syms []elfSymbol) []byte {
	t.Helper()

	strtab := []byte{0}
	symtab := []elf.Sym64{{}}
	for _, s := range syms {
		symtab = append(symtab, elf.Sym64{
			Name:  uint32(len(strtab)),
			Info:  elf.ST_INFO(elf.STB_GLOBAL, s.typ),
			Shndx: 1,
			Value: s.addr,
			Size:  s.size,
		})
		strtab = append(strtab, s.name...)
		strtab = append(strtab, 0)
	}
	shstrtab := []byte("\x00.strtab\x00.symtab\x00.shstrtab\x00")

	var buf bytes.Buffer
	align := func() {
		for buf.Len()%8 != 0 {
			buf.WriteByte(0)
		}
	}
	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("failed to write ELF: %v", err)
		}
	}

	buf.Write(make([]byte, binary.Size(elf.Header64{})))

	strOff := buf.Len()
	buf.Write(strtab)
	align()

	symOff := buf.Len()
	write(symtab)
	symSize := buf.Len() - symOff

	shstrOff := buf.Len()
	buf.Write(shstrtab)
	align()

	shOff := buf.Len()
	write([]elf.Section64{
		{},
		{Name: 1, Type: uint32(elf.SHT_STRTAB), Off: uint64(strOff), Size: uint64(len(strtab)), Addralign: 1},
		{
			Name: 9, Type: uint32(elf.SHT_SYMTAB), Off: uint64(symOff), Size: uint64(symSize),
			Link: 1, Info: 1, Addralign: 8, Entsize: uint64(binary.Size(elf.Sym64{})),
		},
		{Name: 17, Type: uint32(elf.SHT_STRTAB), Off: uint64(shstrOff), Size: uint64(len(shstrtab)), Addralign: 1},
	})

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint64(shOff),
		Ehsize:    uint16(binary.Size(elf.Header64{})),
		Phentsize: uint16(binary.Size(elf.Prog64{})),
		Shentsize: uint16(binary.Size(elf.Section64{})),
		Shnum:     4,
		Shstrndx:  3,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	out := buf.Bytes()
	var h bytes.Buffer
	if err := binary.Write(&h, binary.LittleEndian, hdr); err != nil {
		t.Fatalf("failed to write ELF header: %v", err)
	}
	copy(out, h.Bytes())
	return out
}
