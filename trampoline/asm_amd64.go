//go:build amd64

package trampoline

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"golang.org/x/arch/x86/x86asm"
)

const (
	opcodeCALLrel  = 0xe8 // CALL rel32
	opcodeINT3     = 0xcc
	opcodeJMP      = 0xe9 // JMP rel32
	opcodeJMPabs   = 0xff // JMP r/m64
	opcodeMOVimm64 = 0xb8 // MOV imm64, r64 (+ register)
	opcodeTwoByte  = 0x0f
	opcodeJccRel32 = 0x80 // second byte of Jcc rel32 (+ condition)

	prefixREXW = 0x48

	modrmJMPindirectDX = 0<<6 | 4<<3 | registerDX // JMP [RDX]
	registerDX         = 2
)

// Footprint is the number of bytes a hook writes over a code site: one
// JMP rel32.
const Footprint = 5

// relaySize is MOV RDX, imm64 followed by JMP [RDX].
const relaySize = 12

var conditionCodes = map[x86asm.Op]byte{
	x86asm.JO:  0x0,
	x86asm.JNO: 0x1,
	x86asm.JB:  0x2,
	x86asm.JAE: 0x3,
	x86asm.JE:  0x4,
	x86asm.JNE: 0x5,
	x86asm.JBE: 0x6,
	x86asm.JA:  0x7,
	x86asm.JS:  0x8,
	x86asm.JNS: 0x9,
	x86asm.JP:  0xa,
	x86asm.JNP: 0xb,
	x86asm.JL:  0xc,
	x86asm.JGE: 0xd,
	x86asm.JLE: 0xe,
	x86asm.JG:  0xf,
}

// Measure returns the length of the shortest run of whole instructions at
// the start of code that covers Footprint bytes.
func Measure(code []byte) (int, error) {
	n := 0
	for n < Footprint {
		if n >= len(code) {
			return 0, fmt.Errorf("%w: need %d bytes, site has %d", ErrSiteTooShort, Footprint, len(code))
		}
		instruction, err := x86asm.Decode(code[n:], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: decode error at offset %d: %v", ErrSiteTooShort, n, err)
		}
		n += instruction.Len
	}
	return n, nil
}

// putJump writes JMP rel32 to buf, which is assumed to execute from src.
func putJump(buf []byte, src, dest uintptr) error {
	if len(buf) < Footprint {
		return fmt.Errorf("%w: jump needs %d bytes, have %d", ErrSlotOverflow, Footprint, len(buf))
	}

	rel, ok := rel32(src+Footprint, dest)
	if !ok {
		return fmt.Errorf("%w: jump from 0x%x to 0x%x", ErrOutOfReach, src, dest)
	}

	buf[0] = opcodeJMP
	binary.LittleEndian.PutUint32(buf[1:], uint32(rel))
	return nil
}

// JumpPatch returns the bytes that redirect site to dest: a JMP rel32 padded
// with INT3 to the length of site.
func JumpPatch(site Span, dest uintptr) ([]byte, error) {
	buf := make([]byte, site.Len())
	if err := putJump(buf, site.Addr(), dest); err != nil {
		return nil, err
	}

	// Pad the rest of the buffer INT3 opcodes to match what the compiler does
	for i := Footprint; i < len(buf); i++ {
		buf[i] = opcodeINT3
	}
	return buf, nil
}

func rel32(next, dest uintptr) (int32, bool) {
	d := int64(dest) - int64(next)
	if d < math.MinInt32 || d > math.MaxInt32 {
		return 0, false
	}
	return int32(d), true
}

// Relocate copies the instructions in code, which execute from from, so
// that they execute from to. Relative branches are rewritten in their rel32
// form and RIP-relative operands are adjusted so both copies reach the same
// absolute addresses.
func Relocate(code []byte, from, to uintptr) ([]byte, error) {
	end := from + uintptr(len(code))
	out := make([]byte, 0, len(code)+16)

	for i := 0; i < len(code); {
		instruction, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return nil, fmt.Errorf("decode error at offset %d: %w", i, err)
		}
		raw := code[i : i+instruction.Len]
		next := from + uintptr(i+instruction.Len)

		if rel, ok := relArg(instruction); ok {
			target := next + uintptr(int64(rel))
			if target > from && target < end {
				return nil, fmt.Errorf("%w: %v at offset %d branches into the displaced code", ErrNotRelocatable, instruction, i)
			}

			branch, err := encodeBranch(instruction, to+uintptr(len(out)), target)
			if err != nil {
				return nil, fmt.Errorf("offset %d: %w", i, err)
			}
			out = append(out, branch...)
		} else if mem, ok := ripArg(instruction); ok {
			if instruction.PCRel != 4 {
				return nil, fmt.Errorf("%w: %v at offset %d", ErrNotRelocatable, instruction, i)
			}

			abs := int64(next) + mem.Disp
			newNext := int64(to) + int64(len(out)+instruction.Len)
			newDisp := abs - newNext
			if newDisp < math.MinInt32 || newDisp > math.MaxInt32 {
				return nil, fmt.Errorf("%w: RIP-relative operand at offset %d", ErrOutOfReach, i)
			}

			start := len(out)
			out = append(out, raw...)
			binary.LittleEndian.PutUint32(out[start+instruction.PCRelOff:], uint32(int32(newDisp)))
		} else {
			out = append(out, raw...)
		}

		i += instruction.Len
	}

	return out, nil
}

func relArg(instruction x86asm.Inst) (x86asm.Rel, bool) {
	for _, arg := range instruction.Args {
		if rel, ok := arg.(x86asm.Rel); ok {
			return rel, true
		}
	}
	return 0, false
}

func ripArg(instruction x86asm.Inst) (x86asm.Mem, bool) {
	for _, arg := range instruction.Args {
		if mem, ok := arg.(x86asm.Mem); ok && mem.Base == x86asm.RIP {
			return mem, true
		}
	}
	return x86asm.Mem{}, false
}

// encodeBranch returns the rel32 form of a relative branch located at at and
// jumping to target.
func encodeBranch(instruction x86asm.Inst, at, target uintptr) ([]byte, error) {
	var buf []byte
	switch op := instruction.Op; op {
	case x86asm.JMP:
		buf = []byte{opcodeJMP, 0, 0, 0, 0}
	case x86asm.CALL:
		buf = []byte{opcodeCALLrel, 0, 0, 0, 0}
	default:
		cc, ok := conditionCodes[op]
		if !ok {
			// JCXZ, LOOP and friends only have a rel8 form.
			return nil, fmt.Errorf("%w: %v", ErrNotRelocatable, instruction)
		}
		buf = []byte{opcodeTwoByte, opcodeJccRel32 | cc, 0, 0, 0, 0}
	}

	rel, ok := rel32(at+uintptr(len(buf)), target)
	if !ok {
		return nil, fmt.Errorf("%w: %v to 0x%x", ErrOutOfReach, instruction.Op, target)
	}
	binary.LittleEndian.PutUint32(buf[len(buf)-4:], uint32(rel))
	return buf, nil
}

// encodeSlot lays out a slot at base in buf:
//
//	<relocated instructions>
//	JMP <resume>              (only when resume != 0)
//	MOVQ $funcval, DX
//	JMP (DX)
//
// The relay jumps through DX the same way a Go closure call does, so funcval
// may be any func value. It returns the offset of the relay.
func encodeSlot(buf []byte, base uintptr, relocated []byte, resume, funcval uintptr) (int, error) {
	need := len(relocated) + relaySize
	if resume != 0 {
		need += Footprint
	}
	if need > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, slot has %d", ErrSlotOverflow, need, len(buf))
	}

	i := copy(buf, relocated)
	if resume != 0 {
		if err := putJump(buf[i:], base+uintptr(i), resume); err != nil {
			return 0, err
		}
		i += Footprint
	}

	relay := i

	// MOVQ $funcval, DX
	buf[i] = prefixREXW
	i++
	buf[i] = opcodeMOVimm64 + registerDX
	i++
	binary.LittleEndian.PutUint64(buf[i:], uint64(funcval))
	i += 8

	// JMP (DX)
	buf[i] = opcodeJMPabs
	i++
	buf[i] = modrmJMPindirectDX
	i++

	for ; i < len(buf); i++ {
		buf[i] = opcodeINT3
	}

	return relay, nil
}

// Disassemble renders code, which executes from addr, one instruction per
// line.
func Disassemble(code []byte, addr uintptr) (string, error) {
	var buf bytes.Buffer

	for i := 0; i < len(code); {
		instruction, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return "", fmt.Errorf("decode error at offset %d: %w", i, err)
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", addr+uintptr(i), hex.EncodeToString(code[i:i+instruction.Len]), instruction.String())

		i += instruction.Len
	}

	return buf.String(), nil
}
