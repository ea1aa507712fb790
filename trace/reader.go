// Package trace parses recorded (entry-name, hash, partial-trace) tuples
// from sampler output: lines of the form "ST: <pc> <pc> ...", innermost
// frame first.
package trace

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/maxgio92/stcompress/callgraph"
	"github.com/maxgio92/stcompress/fphash"
)

const linePrefix = "ST:"

// Record is one parsed trace: the entry function's name (resolved from the
// innermost call site), the trace's hash, and the partial trace itself
// (excluding the already-consumed entry call site).
type Record struct {
	EntryName string
	Hash      uint64
	Partial   []uint64
}

// Stats tallies the non-fatal conditions ReadAll encounters while scanning.
type Stats struct {
	// Dropped counts "ST:" lines that are skipped: no readable pc list, or
	// an innermost call-site pc that could not be resolved against the
	// call graph (filtered away, or never known).
	Dropped int
	// Clipped counts traces longer than DepthLimit, truncated rather
	// than dropped.
	Clipped int
	// DuplicateHashes counts traces whose hash was already seen earlier
	// in the stream. Duplicates are counted, not suppressed.
	DuplicateHashes int
}

// Reader reads sampler trace records against a fixed call graph and depth
// limit, and the pruning depths needed to fold each partial trace's hash.
type Reader struct {
	cg         *callgraph.Graph
	retained   map[uint64][]callgraph.CallSite
	depthLimit int
	pd1, pd2   int
}

// NewReader builds a Reader. retained is the filtered target→callers
// relation; a trace whose innermost call site is owned by a function the
// filter dropped is discarded, not searched. depthLimit clips (not drops)
// traces longer than it; pd1 and pd2 are the hash engine's pruning depths
// used to fold each trace's hash.
func NewReader(cg *callgraph.Graph, retained map[uint64][]callgraph.CallSite, depthLimit, pd1, pd2 int) *Reader {
	return &Reader{cg: cg, retained: retained, depthLimit: depthLimit, pd1: pd1, pd2: pd2}
}

// ReadAll scans every "ST:" line in r into a Record, accumulating Stats for
// dropped, clipped, and duplicate-hash conditions along the way.
func (rd *Reader) ReadAll(r io.Reader) ([]Record, Stats, error) {
	var (
		records []Record
		stats   Stats
		seen    = make(map[uint64]bool)
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != linePrefix {
			continue
		}

		pcs, err := parseHexFields(fields[1:])
		if err != nil || len(pcs) == 0 {
			stats.Dropped++
			continue
		}

		entrySite := pcs[0]
		caller, ok := rd.cg.CallSiteToCaller[entrySite]
		if !ok {
			stats.Dropped++
			continue
		}
		if _, ok := rd.retained[caller]; !ok {
			// The owning function was filtered out of the search graph.
			stats.Dropped++
			continue
		}
		name, ok := rd.cg.FuncNames[caller]
		if !ok {
			stats.Dropped++
			continue
		}

		partial := pcs[1:]
		if len(partial) > rd.depthLimit {
			partial = partial[:rd.depthLimit]
			stats.Clipped++
		}

		h := fphash.Sum(partial, rd.pd1, rd.pd2)
		if seen[h] {
			stats.DuplicateHashes++
		}
		seen[h] = true

		records = append(records, Record{EntryName: name, Hash: h, Partial: partial})
	}

	if err := sc.Err(); err != nil {
		return records, stats, err
	}
	return records, stats, nil
}

func parseHexFields(fields []string) ([]uint64, error) {
	out := make([]uint64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 16, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
