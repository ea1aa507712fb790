package binscan

import (
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// CallSiteKind distinguishes a CALL from a (possibly tail-call) JMP/B.
type CallSiteKind string

const (
	CallSiteCall CallSiteKind = "call"
	CallSiteJump CallSiteKind = "jump"
)

// AddressingMode records how a call/jump target was expressed.
type AddressingMode string

const (
	AddressingPCRelative       AddressingMode = "pc-relative"
	AddressingAbsolute         AddressingMode = "absolute"
	AddressingRegisterIndirect AddressingMode = "register-indirect"
)

// Edge is a detected call or jump instruction and its target, if the target
// address is statically resolvable.
type Edge struct {
	SourceAddr uint64
	TargetAddr uint64
	Kind       CallSiteKind
	Mode       AddressingMode
	Resolved   bool
}

// DetectCallSites disassembles code and returns every CALL/JMP (or BL/B)
// instruction found, resolving targets where the addressing mode permits.
func DetectCallSites(code []byte, baseAddr uint64, arch Arch) ([]Edge, error) {
	switch arch {
	case ArchAMD64:
		return detectCallSitesAMD64(code, baseAddr), nil
	case ArchARM64:
		return detectCallSitesARM64(code, baseAddr), nil
	default:
		return nil, fmt.Errorf("binscan: unsupported architecture %v", arch)
	}
}

func detectCallSitesAMD64(code []byte, baseAddr uint64) []Edge {
	var result []Edge

	offset := 0
	addr := baseAddr

	for offset < len(code) {
		// Skip ENDBR64/ENDBR32, which x86asm does not decode; they are
		// transparent CET landing-pad markers at function entries.
		if offset+4 <= len(code) &&
			code[offset] == 0xf3 && code[offset+1] == 0x0f &&
			code[offset+2] == 0x1e && (code[offset+3] == 0xfa || code[offset+3] == 0xfb) {
			offset += 4
			addr += 4
			continue
		}

		inst, err := x86asm.Decode(code[offset:], 64)
		if err != nil {
			offset++
			addr++
			continue
		}

		switch inst.Op {
		case x86asm.CALL:
			if e := extractTargetAMD64(inst, addr, CallSiteCall); e != nil {
				result = append(result, *e)
			}
		case x86asm.JMP:
			if e := extractTargetAMD64(inst, addr, CallSiteJump); e != nil {
				result = append(result, *e)
			}
		}

		offset += inst.Len
		addr += uint64(inst.Len)
	}

	return result
}

func extractTargetAMD64(inst x86asm.Inst, sourceAddr uint64, kind CallSiteKind) *Edge {
	e := &Edge{SourceAddr: sourceAddr, Kind: kind}

	switch arg := inst.Args[0].(type) {
	case x86asm.Rel:
		e.TargetAddr = sourceAddr + uint64(inst.Len) + uint64(int64(arg))
		e.Mode = AddressingPCRelative
		e.Resolved = true
		return e

	case x86asm.Mem:
		if arg.Base == x86asm.RIP && arg.Index == 0 {
			// RIP-relative memory operand: the referenced slot's address
			// is statically known, but the value there (the real target)
			// is not without reading the binary's data section, so this
			// is left unresolved like register-indirect.
			e.Mode = AddressingRegisterIndirect
			e.Resolved = false
			return e
		}
		if arg.Base == 0 && arg.Index == 0 {
			e.TargetAddr = uint64(arg.Disp)
			e.Mode = AddressingAbsolute
			e.Resolved = true
			return e
		}
		e.Mode = AddressingRegisterIndirect
		e.Resolved = false
		return e

	case x86asm.Reg:
		e.Mode = AddressingRegisterIndirect
		e.Resolved = false
		return e

	default:
		return nil
	}
}

func detectCallSitesARM64(code []byte, baseAddr uint64) []Edge {
	var result []Edge
	const insnLen = 4

	for offset := 0; offset+insnLen <= len(code); offset += insnLen {
		inst, err := arm64asm.Decode(code[offset : offset+insnLen])
		if err != nil {
			continue
		}
		addr := baseAddr + uint64(offset)

		switch inst.Op {
		case arm64asm.BL:
			if e := extractTargetARM64(inst, addr, CallSiteCall); e != nil {
				result = append(result, *e)
			}
		case arm64asm.B:
			if e := extractTargetARM64(inst, addr, CallSiteJump); e != nil {
				result = append(result, *e)
			}
		}
	}

	return result
}

func extractTargetARM64(inst arm64asm.Inst, sourceAddr uint64, kind CallSiteKind) *Edge {
	pcrel, ok := inst.Args[0].(arm64asm.PCRel)
	if !ok {
		return nil
	}
	return &Edge{
		SourceAddr: sourceAddr,
		TargetAddr: sourceAddr + uint64(int64(pcrel)),
		Kind:       kind,
		Mode:       AddressingPCRelative,
		Resolved:   true,
	}
}
