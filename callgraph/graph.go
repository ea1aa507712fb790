// Package callgraph loads a disassembler-derived call-graph dump into a raw,
// direction-resolved graph and resolves it against a [Filter] into the
// target→callers relation the reverse call graph is built from.
package callgraph

import "io"

// CallSite identifies a statically possible call into some target: the
// owning caller's entry pc and the call instruction's own pc.
type CallSite struct {
	CallerPC uint64
	SitePC   uint64
}

// DirectCall is a call site whose target is known exactly.
type DirectCall struct {
	SitePC   uint64
	TargetPC uint64
}

// DirectEdge is a direct call site together with its owning caller, kept in
// input-file order so the resolver's tie-breaks stay deterministic.
type DirectEdge struct {
	CallerPC uint64
	SitePC   uint64
	TargetPC uint64
}

// Graph is the raw call graph parsed from a disassembly dump, plus the
// derived indices computed in one pass after parsing. It is immutable once
// returned from [Parse].
type Graph struct {
	// Indirect targets.
	TypeIDToIndirTargets map[uint64][]uint64
	IndirTargetToTypeID  map[uint64]uint64
	IndirTargetUnknown   map[uint64]struct{}
	TargetsWithNoInfo    map[uint64]struct{}

	// Indirect calls.
	TypeIDToIndirCalls   map[uint64][]uint64
	IndirCallToTypeID    map[uint64]uint64
	IndirCallUnknownType map[uint64]struct{}

	// Call sites. IndirCallSiteOrder and DirCalls keep input-file order;
	// the resolver iterates them instead of the maps so edge lists come
	// out the same way on every run.
	FuncToIndirCallSites map[uint64][]uint64
	FuncToDirCallSites   map[uint64][]DirectCall
	DirCallSites         map[uint64]struct{}
	IndirCallSites       map[uint64]struct{}
	IndirCallSiteOrder   []uint64
	DirCalls             []DirectEdge

	// Functions.
	FuncNames map[uint64]string
	NameToPC  map[string]uint64

	// Derived.
	CallSiteToCaller map[uint64]uint64
}

func newGraph() *Graph {
	return &Graph{
		TypeIDToIndirTargets: make(map[uint64][]uint64),
		IndirTargetToTypeID:  make(map[uint64]uint64),
		IndirTargetUnknown:   make(map[uint64]struct{}),
		TargetsWithNoInfo:    make(map[uint64]struct{}),

		TypeIDToIndirCalls:   make(map[uint64][]uint64),
		IndirCallToTypeID:    make(map[uint64]uint64),
		IndirCallUnknownType: make(map[uint64]struct{}),

		FuncToIndirCallSites: make(map[uint64][]uint64),
		FuncToDirCallSites:   make(map[uint64][]DirectCall),
		DirCallSites:         make(map[uint64]struct{}),
		IndirCallSites:       make(map[uint64]struct{}),

		FuncNames: make(map[uint64]string),
		NameToPC:  make(map[string]uint64),

		CallSiteToCaller: make(map[uint64]uint64),
	}
}

// Parse reads a sectioned call-graph dump and returns the raw graph with all
// derived indices populated. The returned Graph is never mutated again;
// callers resolve it against a [Filter] via [Graph.Resolve].
func Parse(r io.Reader) (*Graph, error) {
	g := newGraph()
	if err := parseSections(r, g); err != nil {
		return nil, err
	}
	g.deriveIndices()
	return g, nil
}

// deriveIndices computes the post-parse indices: TargetsWithNoInfo and
// IndirCallUnknownType. NameToPC and CallSiteToCaller are already populated
// incrementally while parsing.
func (g *Graph) deriveIndices() {
	for pc := range g.FuncNames {
		_, hasType := g.IndirTargetToTypeID[pc]
		_, unknown := g.IndirTargetUnknown[pc]
		if !hasType && !unknown {
			g.TargetsWithNoInfo[pc] = struct{}{}
		}
	}

	// Indirect call sites lacking a known type-id.
	for site := range g.IndirCallSites {
		if _, ok := g.IndirCallToTypeID[site]; !ok {
			g.IndirCallUnknownType[site] = struct{}{}
		}
	}
}
