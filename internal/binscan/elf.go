package binscan

import (
	"debug/elf"
	"fmt"
	"io"
)

// DumpFromELF parses an ELF binary, extracts its .text section, infers the
// architecture from the ELF header, and returns a callgraph.Parse-ready
// textual dump built from the detected prologues and call/jump sites.
// Symbol names from .symtab, when present, are used in place of synthesized
// sub_<hex> names.
func DumpFromELF(r io.ReaderAt) ([]byte, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("binscan: parse ELF: %w", err)
	}
	defer f.Close()

	textSec := f.Section(".text")
	if textSec == nil {
		return nil, fmt.Errorf("binscan: no .text section found")
	}

	code, err := textSec.Data()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("binscan: read .text section: %w", err)
	}

	var arch Arch
	switch f.Machine {
	case elf.EM_X86_64:
		arch = ArchAMD64
	case elf.EM_AARCH64:
		arch = ArchARM64
	default:
		return nil, fmt.Errorf("binscan: unsupported ELF machine %s", f.Machine)
	}

	symtab := symbolNames(f, textSec)

	return Dump(code, textSec.Addr, arch, symtab)
}

func symbolNames(f *elf.File, textSec *elf.Section) map[uint64]string {
	syms, err := f.Symbols()
	if err != nil {
		return nil
	}
	names := make(map[uint64]string)
	textEnd := textSec.Addr + textSec.Size
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		if s.Value < textSec.Addr || s.Value >= textEnd || s.Name == "" {
			continue
		}
		names[s.Value] = s.Name
	}
	return names
}
