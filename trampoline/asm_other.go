//go:build !amd64

package trampoline

const opcodeINT3 = 0

// Footprint is the number of bytes a hook writes over a code site.
const Footprint = 5

func Measure(code []byte) (int, error) {
	return 0, ErrUnsupportedArch
}

func JumpPatch(site Span, dest uintptr) ([]byte, error) {
	return nil, ErrUnsupportedArch
}

func Relocate(code []byte, from, to uintptr) ([]byte, error) {
	return nil, ErrUnsupportedArch
}

func encodeSlot(buf []byte, base uintptr, relocated []byte, resume, funcval uintptr) (int, error) {
	return 0, ErrUnsupportedArch
}

func Disassemble(code []byte, addr uintptr) (string, error) {
	return "", ErrUnsupportedArch
}
