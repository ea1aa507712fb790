package callgraph

import "strings"

// Filter configures which functions and edges survive resolution into the
// target→callers relation.
type Filter struct {
	// IncludeCallsToFunctionsWithName nullifies exclusion for a function
	// (as both caller and callee) matched by exact name. It precedes all
	// other rules below.
	IncludeCallsToFunctionsWithName map[string]struct{}

	// ExcludeFuncs drops a function and every edge incident to it.
	ExcludeFuncs map[uint64]struct{}

	// ExcludeFuncsWithKeywordInName adds to ExcludeFuncs the pc of every
	// named function whose name contains any of these substrings. Only
	// named functions can be reached by this rule.
	ExcludeFuncsWithKeywordInName []string

	// ExcludeUnknownIndirTargets treats every UNKNOWN-target function as
	// excluded.
	ExcludeUnknownIndirTargets bool

	// ExcludeIndirCallsToUnknownTargets suppresses edges into
	// UNKNOWN-target functions from known-type-id indirect call sites.
	ExcludeIndirCallsToUnknownTargets bool

	// ExcludeUnknownIndirCalls suppresses edges originating at
	// UNKNOWN-typed indirect call sites.
	ExcludeUnknownIndirCalls bool
}

// DefaultFilter returns the compiled-in default filter policy: the
// allocation/deallocation family is always reachable by name, ASAN and PLT
// scaffolding is excluded by keyword, and all three Exclude* flags are set.
func DefaultFilter() Filter {
	return Filter{
		IncludeCallsToFunctionsWithName: namesOf(
			"malloc", "calloc", "realloc", "free",
			"_Znwm", "_Znam", "_ZdlPv", "_ZdaPv", "_ZnwmRKSt9nothrow_t",
		),
		ExcludeFuncs: make(map[uint64]struct{}),
		ExcludeFuncsWithKeywordInName: []string{
			"asan", "interceptor", "@plt", "sanitizer", "__clang_call_terminate",
		},
		ExcludeUnknownIndirTargets:        true,
		ExcludeIndirCallsToUnknownTargets: true,
		ExcludeUnknownIndirCalls:          true,
	}
}

func namesOf(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// excluder resolves name-based filter rules into a pc predicate, per the
// filter-resolution algorithm's first step.
type excluder struct {
	g          *Graph
	f          Filter
	excludePCs map[uint64]struct{}
}

func newExcluder(g *Graph, f Filter) *excluder {
	excl := make(map[uint64]struct{}, len(f.ExcludeFuncs))
	for pc := range f.ExcludeFuncs {
		excl[pc] = struct{}{}
	}
	if len(f.ExcludeFuncsWithKeywordInName) > 0 {
		for pc, name := range g.FuncNames {
			for _, kw := range f.ExcludeFuncsWithKeywordInName {
				if strings.Contains(name, kw) {
					excl[pc] = struct{}{}
					break
				}
			}
		}
	}
	return &excluder{g: g, f: f, excludePCs: excl}
}

func (e *excluder) excluded(pc uint64) bool {
	if name, ok := e.g.FuncNames[pc]; ok {
		if _, ok := e.f.IncludeCallsToFunctionsWithName[name]; ok {
			return false
		}
	}
	if _, ok := e.excludePCs[pc]; ok {
		return true
	}
	if e.f.ExcludeUnknownIndirTargets {
		if _, ok := e.g.IndirTargetUnknown[pc]; ok {
			return true
		}
	}
	return false
}

// Resolve computes the filtered target→callers relation: for every retained
// function, the callers that may reach it through an indirect edge
// (matching type-id, or UNKNOWN-typed call site / UNKNOWN-typed target per
// the Exclude* flags) or a direct edge. Every retained function appears as a
// key, even with an empty caller slice.
//
// Resolve is a pure function of (g, f): it does not mutate Graph, so calling
// it twice with the same Filter yields identical results (filter
// idempotence) without needing to re-parse.
func (g *Graph) Resolve(f Filter) map[uint64][]CallSite {
	ex := newExcluder(g, f)

	// Precompute retained indirect call sites, split by how they may
	// contribute edges. IndirCallSiteOrder preserves input-file order so
	// the UNKNOWN-site and any-known-site groups come out deterministic;
	// per-type lists already follow their section's record order.
	var unknownSiteCalls, knownSiteCalls []CallSite
	for _, site := range g.IndirCallSiteOrder {
		caller, ok := g.CallSiteToCaller[site]
		if !ok || ex.excluded(caller) {
			continue
		}
		if _, unknown := g.IndirCallUnknownType[site]; unknown {
			unknownSiteCalls = append(unknownSiteCalls, CallSite{CallerPC: caller, SitePC: site})
		} else {
			knownSiteCalls = append(knownSiteCalls, CallSite{CallerPC: caller, SitePC: site})
		}
	}

	typedSiteCalls := make(map[uint64][]CallSite, len(g.TypeIDToIndirCalls))
	for typeID, sites := range g.TypeIDToIndirCalls {
		for _, site := range sites {
			caller, ok := g.CallSiteToCaller[site]
			if !ok || ex.excluded(caller) {
				continue
			}
			typedSiteCalls[typeID] = append(typedSiteCalls[typeID], CallSite{CallerPC: caller, SitePC: site})
		}
	}

	out := make(map[uint64][]CallSite, len(g.FuncNames))

	for pc := range g.FuncNames {
		if ex.excluded(pc) {
			continue
		}
		callers := out[pc]

		_, hasTypeID := g.IndirTargetToTypeID[pc]
		_, unknownTarget := g.IndirTargetUnknown[pc]
		isIndirTarget := hasTypeID || unknownTarget

		if isIndirTarget {
			if !f.ExcludeUnknownIndirCalls {
				callers = append(callers, unknownSiteCalls...)
			}
			if hasTypeID {
				typeID := g.IndirTargetToTypeID[pc]
				callers = append(callers, typedSiteCalls[typeID]...)
			} else if !f.ExcludeIndirCallsToUnknownTargets {
				callers = append(callers, knownSiteCalls...)
			}
		}

		out[pc] = callers
	}

	for _, e := range g.DirCalls {
		if ex.excluded(e.CallerPC) || ex.excluded(e.SitePC) || ex.excluded(e.TargetPC) {
			continue
		}
		out[e.TargetPC] = append(out[e.TargetPC], CallSite{CallerPC: e.CallerPC, SitePC: e.SitePC})
	}

	return out
}
