package binscan

import (
	"encoding/binary"

	"golang.org/x/arch/x86/x86asm"
)

// PrologueType names a recognized function prologue pattern.
type PrologueType string

const (
	PrologueClassic        PrologueType = "classic"
	PrologueNoFramePointer PrologueType = "no-frame-pointer"
	ProloguePushOnly       PrologueType = "push-only"
	PrologueLEABased       PrologueType = "lea-based"
	PrologueFramePairARM64 PrologueType = "frame-pair"
	PrologueFramePairOnly  PrologueType = "frame-pair-only"
)

// Prologue is a detected function entry point.
type Prologue struct {
	Address uint64
	Type    PrologueType
}

// DetectPrologues scans code for recognizable function prologues. baseAddr
// is the virtual address of code[0].
func DetectPrologues(code []byte, baseAddr uint64, arch Arch) []Prologue {
	switch arch {
	case ArchARM64:
		return detectProloguesARM64(code, baseAddr)
	default:
		return detectProloguesAMD64(code, baseAddr)
	}
}

// detectProloguesAMD64 recognizes the classic frame-pointer setup, the
// no-frame-pointer sub-rsp form, a bare push-rbp, and lea-based stack
// allocation. The last three are each gated on following a RET or being the
// first instruction decoded (never a literal basic-block boundary, but a
// reasonable proxy absent full control-flow recovery); the classic
// push rbp; mov rbp, rsp pair is recognized wherever it occurs.
func detectProloguesAMD64(code []byte, baseAddr uint64) []Prologue {
	var result []Prologue

	offset := 0
	addr := baseAddr
	var prevInsn *x86asm.Inst

	for offset < len(code) {
		inst, err := x86asm.Decode(code[offset:], 64)
		if err != nil {
			offset++
			addr++
			prevInsn = nil
			continue
		}

		if prevInsn != nil &&
			prevInsn.Op == x86asm.PUSH && prevInsn.Args[0] == x86asm.RBP &&
			inst.Op == x86asm.MOV && inst.Args[0] == x86asm.RBP && inst.Args[1] == x86asm.RSP {
			entry := addr - uint64(prevInsn.Len)
			// The push itself may already have been recorded as a
			// push-only prologue; upgrade it rather than double-report.
			if n := len(result); n > 0 && result[n-1].Address == entry {
				result[n-1].Type = PrologueClassic
			} else {
				result = append(result, Prologue{Address: entry, Type: PrologueClassic})
			}
		}

		if inst.Op == x86asm.SUB && inst.Args[0] == x86asm.RSP {
			if imm, ok := inst.Args[1].(x86asm.Imm); ok && imm > 0 {
				if prevInsn == nil || prevInsn.Op == x86asm.RET {
					result = append(result, Prologue{Address: addr, Type: PrologueNoFramePointer})
				}
			}
		}

		if inst.Op == x86asm.PUSH && inst.Args[0] == x86asm.RBP {
			if prevInsn == nil || prevInsn.Op == x86asm.RET {
				result = append(result, Prologue{Address: addr, Type: ProloguePushOnly})
			}
		}

		if inst.Op == x86asm.LEA && inst.Args[0] == x86asm.RSP {
			if prevInsn == nil || prevInsn.Op == x86asm.RET {
				result = append(result, Prologue{Address: addr, Type: PrologueLEABased})
			}
		}

		prevInsn = &inst
		offset += inst.Len
		addr += uint64(inst.Len)
	}

	return result
}

const (
	arm64STPx29x30 = uint32(0xa9bf7bfd) // stp x29, x30, [sp, #-16]!
	arm64MovX29SP  = uint32(0x910003fd) // mov x29, sp
)

// detectProloguesARM64 recognizes the AAPCS64 frame-pair prologue (stp
// x29, x30, [sp, #-16]! optionally followed by mov x29, sp) at
// instruction-aligned offsets following a RET or at start-of-input.
func detectProloguesARM64(code []byte, baseAddr uint64) []Prologue {
	var result []Prologue
	const insnLen = 4

	isRET := func(off int) bool {
		if off < 0 || off+insnLen > len(code) {
			return false
		}
		return binary.LittleEndian.Uint32(code[off:]) == 0xd65f03c0
	}

	for off := 0; off+insnLen <= len(code); off += insnLen {
		if binary.LittleEndian.Uint32(code[off:]) != arm64STPx29x30 {
			continue
		}
		if off != 0 && !isRET(off-insnLen) {
			continue
		}
		addr := baseAddr + uint64(off)
		if off+2*insnLen <= len(code) && binary.LittleEndian.Uint32(code[off+insnLen:]) == arm64MovX29SP {
			result = append(result, Prologue{Address: addr, Type: PrologueFramePairARM64})
		} else {
			result = append(result, Prologue{Address: addr, Type: PrologueFramePairOnly})
		}
	}

	return result
}
