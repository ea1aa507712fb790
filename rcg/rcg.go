// Package rcg holds the reverse call graph: a caller-navigable layout
// flattened from a callgraph.Graph's filtered target→callers relation,
// optimised for the repeated caller-lookup the DFS reconstructor performs.
package rcg

import "github.com/maxgio92/stcompress/callgraph"

// CallSiteNode is one edge back to a caller: the call-site pc and the
// FunctionNode that owns it. It never outlives the FunctionNode slice it
// was allocated into.
type CallSiteNode struct {
	SitePC uint64
	Caller *FunctionNode
}

// FunctionNode is one retained function. Callers holds a single contiguous
// allocation sized exactly to the caller count; it is nil, not a
// zero-length allocation, for leaves.
type FunctionNode struct {
	EntryPC uint64
	Callers []CallSiteNode
}

// Graph is the reverse call graph: one FunctionNode per retained function,
// plus a call-site pc index for diagnostic lookups. It owns all of its node
// and edge storage and must not outlive the callgraph.Graph it names PCs
// against if names are to be printed from it.
type Graph struct {
	Funcs     map[uint64]*FunctionNode
	CallSites map[uint64]*CallSiteNode
}

// New flattens a filtered target→callers relation (callgraph.Graph.Resolve's
// result) into a Graph. Edge order within each FunctionNode's Callers slice
// matches the order callers appear in the relation, preserving the
// resolver's tie-break ordering (indirect-unknown-site edges,
// matching-type edges, direct edges, each in input-file order).
func New(targetsToCallers map[uint64][]callgraph.CallSite) *Graph {
	g := &Graph{
		Funcs:     make(map[uint64]*FunctionNode, len(targetsToCallers)),
		CallSites: make(map[uint64]*CallSiteNode),
	}

	for pc := range targetsToCallers {
		g.Funcs[pc] = &FunctionNode{EntryPC: pc}
	}

	// A caller pc that never itself appears as a target (e.g. an entry
	// point nobody calls) still needs a node to recurse into; the
	// resolver normally guarantees every retained function is a key, but
	// a caller outside the named-function set would otherwise leave a
	// dangling edge.
	nodeFor := func(pc uint64) *FunctionNode {
		fn, ok := g.Funcs[pc]
		if !ok {
			fn = &FunctionNode{EntryPC: pc}
			g.Funcs[pc] = fn
		}
		return fn
	}

	for pc, callers := range targetsToCallers {
		if len(callers) == 0 {
			continue
		}
		fn := g.Funcs[pc]
		fn.Callers = make([]CallSiteNode, len(callers))
		for i, c := range callers {
			fn.Callers[i] = CallSiteNode{SitePC: c.SitePC, Caller: nodeFor(c.CallerPC)}
		}
		for i := range fn.Callers {
			g.CallSites[fn.Callers[i].SitePC] = &fn.Callers[i]
		}
	}

	return g
}
