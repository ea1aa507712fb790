// Package binscan derives call-graph dump records directly from an ELF
// binary's .text section, for use when no pre-existing disassembler dump is
// available. Function entries are located by prologue-pattern matching,
// call and jump sites by linear disassembly; both are emitted in the
// textual record grammar callgraph.Parse consumes.
package binscan

import "fmt"

// Arch selects the architecture-specific disassembly loop.
type Arch int

const (
	ArchAMD64 Arch = iota
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchAMD64:
		return "amd64"
	case ArchARM64:
		return "arm64"
	default:
		return fmt.Sprintf("Arch(%d)", int(a))
	}
}
