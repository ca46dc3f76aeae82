package trampoline

import (
	"fmt"
	"unsafe"
)

// Span is a range of process memory that holds machine code. It is the only
// place raw addresses are turned into memory; everything else passes Spans
// around.
type Span struct {
	addr uintptr
	size int
}

// SpanAt returns the span of size bytes starting at addr.
func SpanAt(addr uintptr, size int) Span {
	return Span{addr: addr, size: size}
}

func spanOf(buf []byte) Span {
	return Span{
		addr: uintptr(unsafe.Pointer(unsafe.SliceData(buf))),
		size: len(buf),
	}
}

// Addr returns the address of the first byte.
func (s Span) Addr() uintptr { return s.addr }

// Len returns the size of the span in bytes.
func (s Span) Len() int { return s.size }

// End returns the address immediately after the span.
func (s Span) End() uintptr { return s.addr + uintptr(s.size) }

// IsZero reports whether the span refers to no memory.
func (s Span) IsZero() bool { return s.addr == 0 || s.size == 0 }

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	if s.IsZero() || o.IsZero() {
		return false
	}
	return s.addr < o.End() && o.addr < s.End()
}

// Sub returns the n bytes of s starting at off.
func (s Span) Sub(off, n int) Span {
	if off < 0 || n < 0 || off+n > s.size {
		panic(fmt.Sprintf("trampoline: sub-span [%d:%d] out of range for %v", off, off+n, s))
	}
	return Span{addr: s.addr + uintptr(off), size: n}
}

func (s Span) String() string {
	return fmt.Sprintf("0x%x+%d", s.addr, s.size)
}

func (s Span) bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(s.addr)), s.size)
}

// Read returns a copy of the bytes currently in the span.
func (s Span) Read() []byte {
	if s.IsZero() {
		return nil
	}
	buf := make([]byte, s.size)
	copy(buf, s.bytes())
	return buf
}

// Write replaces the contents of the span with code. The pages covering the
// span are made writable for the duration of a single copy, their protection
// is restored and the instruction cache is flushed for the written range.
//
// Other threads executing the span while it is written may observe a partial
// update. Callers must write before the host can reach the code.
func (s Span) Write(code []byte) error {
	if len(code) != s.size {
		return fmt.Errorf("%d bytes do not fit span %v", len(code), s)
	}
	if s.IsZero() {
		return nil
	}

	restore, err := makeWritable(s)
	if err != nil {
		return fmt.Errorf("unable to make %v writable: %w", s, err)
	}

	dst := s.bytes()
	copy(dst, code)
	cacheflush(dst)

	if err := restore(); err != nil {
		return fmt.Errorf("unable to restore protection of %v: %w", s, err)
	}
	return nil
}

// pageRegion returns the whole pages covering s.
func pageRegion(s Span, pageSize int) Span {
	// Round address down to page boundary.
	pageStart := s.addr &^ (uintptr(pageSize) - 1)

	// Round up to cover complete pages.
	regionSize := (int(s.addr-pageStart) + s.size + pageSize - 1) &^ (pageSize - 1)

	return Span{addr: pageStart, size: regionSize}
}
