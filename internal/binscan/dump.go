package binscan

import (
	"bytes"
	"fmt"
	"sort"
)

// Dump derives a callgraph.Parse-compatible textual dump directly from a
// .text section's bytes: a FUNCTIONS record per detected prologue or
// resolvable call/jump target, and DIRECT CALL SITES / INDIRECT CALL SITES
// records grouping each call or jump instruction under the function that
// contains it.
//
// Ownership of a call site is determined by the nearest detected function
// entry at or below its address — a boundary heuristic standing in for the
// full control-flow recovery a real disassembler dump would have done
// upstream; indirect type-ids are not recoverable from machine code alone,
// so every unresolved call site is emitted as an INDIRECT CALL SITES entry
// with no type-id (it parses as UNKNOWN-typed). Unresolved jumps are
// dropped.
// symtab, if non-nil, supplies real names for entries it covers; entries
// without one are named sub_<hex>.
func Dump(code []byte, baseAddr uint64, arch Arch, symtab map[uint64]string) ([]byte, error) {
	prologues := DetectPrologues(code, baseAddr, arch)
	edges, err := DetectCallSites(code, baseAddr, arch)
	if err != nil {
		return nil, err
	}

	textEnd := baseAddr + uint64(len(code))

	funcSet := make(map[uint64]struct{}, len(prologues))
	for _, p := range prologues {
		funcSet[p.Address] = struct{}{}
	}
	for _, e := range edges {
		if e.Resolved && e.TargetAddr >= baseAddr && e.TargetAddr < textEnd {
			funcSet[e.TargetAddr] = struct{}{}
		}
	}

	entries := make([]uint64, 0, len(funcSet))
	for pc := range funcSet {
		entries = append(entries, pc)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })

	owner := func(pc uint64) (uint64, bool) {
		i := sort.Search(len(entries), func(i int) bool { return entries[i] > pc })
		if i == 0 {
			return 0, false
		}
		return entries[i-1], true
	}

	name := func(pc uint64) string {
		if symtab != nil {
			if n, ok := symtab[pc]; ok && n != "" {
				return n
			}
		}
		return fmt.Sprintf("sub_%x", pc)
	}

	type directPair struct{ site, target uint64 }
	direct := make(map[uint64][]directPair)
	indirect := make(map[uint64][]uint64)

	for _, e := range edges {
		caller, ok := owner(e.SourceAddr)
		if !ok {
			continue
		}
		if e.Resolved {
			if _, known := funcSet[e.TargetAddr]; known {
				direct[caller] = append(direct[caller], directPair{site: e.SourceAddr, target: e.TargetAddr})
			}
			continue
		}
		if e.Kind == CallSiteJump {
			// Unresolved jumps are switch tables or computed branches,
			// not call edges; only a resolved jump landing on a known
			// entry counts (as a tail call, above).
			continue
		}
		indirect[caller] = append(indirect[caller], e.SourceAddr)
	}

	var buf bytes.Buffer

	buf.WriteString("FUNCTIONS\n")
	for _, pc := range entries {
		fmt.Fprintf(&buf, "%x %s\n", pc, name(pc))
	}
	buf.WriteString("\n")

	buf.WriteString("DIRECT CALL SITES\n")
	for _, caller := range entries {
		pairs := direct[caller]
		if len(pairs) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "%x", caller)
		for _, p := range pairs {
			fmt.Fprintf(&buf, " %x %x", p.site, p.target)
		}
		buf.WriteString("\n")
	}
	buf.WriteString("\n")

	buf.WriteString("INDIRECT CALL SITES\n")
	for _, caller := range entries {
		sites := indirect[caller]
		if len(sites) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "%x", caller)
		for _, s := range sites {
			fmt.Fprintf(&buf, " %x", s)
		}
		buf.WriteString("\n")
	}
	buf.WriteString("\n")

	return buf.Bytes(), nil
}
