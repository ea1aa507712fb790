// Package reconstruct implements the bounded, prune-aware depth-first
// enumeration that recovers a stack trace from its hash, an innermost
// call-site pc, and the reverse call graph.
package reconstruct

import (
	"errors"
	"fmt"

	"github.com/maxgio92/stcompress/fphash"
	"github.com/maxgio92/stcompress/rcg"
)

// ErrArgumentInvalid is returned when the pruning depths don't satisfy
// PruningDepth1 < PruningDepth2 <= MaxDepth.
var ErrArgumentInvalid = errors.New("reconstruct: invalid argument")

// ErrReconstructionFailed is returned when the search exhausts MaxDepth
// without finding a trace whose hash and frames both match.
var ErrReconstructionFailed = errors.New("reconstruct: no matching trace found")

// Result is a successfully reconstructed trace.
type Result struct {
	// Trace holds the reconstructed call-site pcs, innermost first,
	// excluding the caller-supplied entry call site.
	Trace []uint64
	// Collisions counts hash matches encountered during the search whose
	// frames did not agree with the wanted trace.
	Collisions int
}

// Context carries all per-search state: the bounds, the wanted
// (hash, trace) pair, and the scratch buffer DFS fills in as it descends.
// It is not safe for concurrent reuse across searches; construct one per
// trace with [New].
type Context struct {
	maxDepth int
	pd1, pd2 int

	wantedHash  uint64
	wantedTrace []uint64

	scratch    []uint64
	collisions int
	steps      int
}

// New builds a search context for one trace. PruningDepth1 must be strictly
// less than PruningDepth2, which must be at most MaxDepth.
func New(maxDepth, pd1, pd2 int, wantedHash uint64, wantedTrace []uint64) (*Context, error) {
	if !(pd1 < pd2 && pd2 <= maxDepth) {
		return nil, fmt.Errorf("%w: need pruning_depth_1 < pruning_depth_2 <= max_depth, got %d < %d <= %d",
			ErrArgumentInvalid, pd1, pd2, maxDepth)
	}
	return &Context{
		maxDepth:    maxDepth,
		pd1:         pd1,
		pd2:         pd2,
		wantedHash:  wantedHash,
		wantedTrace: wantedTrace,
		scratch:     make([]uint64, maxDepth+1),
	}, nil
}

// Run searches the reverse call graph starting at entry for a trace whose
// hash and frames match the context's wanted values. The first successful
// reconstruction in caller-insertion order is returned; if the search
// exhausts MaxDepth without a match, it returns ErrReconstructionFailed.
// Collisions is populated in the returned Result regardless of outcome when
// the search succeeds; on failure the caller has no result to inspect, but
// c.Collisions() still reports the count observed along the way.
func (c *Context) Run(entry *rcg.FunctionNode) (Result, error) {
	c.collisions = 0
	c.steps = 0
	if c.dfs(0, 0, entry) {
		trace := make([]uint64, len(c.wantedTrace))
		copy(trace, c.scratch[:len(c.wantedTrace)])
		return Result{Trace: trace, Collisions: c.collisions}, nil
	}
	return Result{}, ErrReconstructionFailed
}

// Collisions reports the number of hash matches whose frames disagreed with
// the wanted trace, observed during the most recent Run.
func (c *Context) Collisions() int {
	return c.collisions
}

// Steps reports the number of hash-fold evaluations performed during the
// most recent Run: a direct measure of how much of the search tree was
// explored, and so of how effective checkpoint pruning was.
func (c *Context) Steps() int {
	return c.steps
}

func (c *Context) dfs(depth int, h uint64, fn *rcg.FunctionNode) bool {
	if h == c.wantedHash {
		if sameTrace(c.scratch[:depth], c.wantedTrace) {
			return true
		}
		c.collisions++
	}

	if depth > c.maxDepth {
		return false
	}

	if depth == c.pd1+1 {
		if fphash.Checkpoint1(h) != fphash.Checkpoint1(c.wantedHash) {
			return false
		}
	} else if depth == c.pd2+1 {
		if fphash.Checkpoint2(h) != fphash.Checkpoint2(c.wantedHash) {
			return false
		}
	}

	for i := range fn.Callers {
		cs := &fn.Callers[i]
		c.scratch[depth] = cs.SitePC
		c.steps++
		if c.dfs(depth+1, fphash.Step(h, cs.SitePC, depth, c.pd1, c.pd2), cs.Caller) {
			return true
		}
	}
	return false
}

func sameTrace(got, want []uint64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
