package binscan_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stcompress/callgraph"
	"github.com/maxgio92/stcompress/internal/binscan"
)

// TestDump_RoundTripsThroughCallgraphParse grounds binscan's dump format
// against callgraph.Parse directly: a tiny two-function AMD64 blob with one
// direct call between them must converge on a graph with both functions
// and the resolved edge between them, regardless of which path produced
// the textual dump.
func TestDump_RoundTripsThroughCallgraphParse(t *testing.T) {
	// callee at 0x1000: ret
	// caller at 0x1001: push rbp (prologue, gated on the preceding ret);
	//                    call rel32 back to 0x1000; ret
	code := []byte{
		0xC3,                         // 0x1000: ret              (callee)
		0x55,                         // 0x1001: push rbp         (caller prologue)
		0xE8, 0xF9, 0xFF, 0xFF, 0xFF, // 0x1002: call rel32 -> 0x1002+5-7=0x1000
		0xC3, // 0x1007: ret
	}
	baseAddr := uint64(0x1000)

	symtab := map[uint64]string{0x1000: "callee", 0x1001: "caller"}
	dump, err := binscan.Dump(code, baseAddr, binscan.ArchAMD64, symtab)
	require.NoError(t, err)
	require.Contains(t, string(dump), "FUNCTIONS")

	g, err := callgraph.Parse(strings.NewReader(string(dump)))
	require.NoError(t, err)

	require.Equal(t, "callee", g.FuncNames[0x1000])
	require.Equal(t, "caller", g.FuncNames[0x1001])
	require.Equal(t, uint64(0x1001), g.CallSiteToCaller[0x1002])

	ttc := g.Resolve(callgraph.Filter{})
	require.Len(t, ttc[0x1000], 1)
	require.Equal(t, uint64(0x1001), ttc[0x1000][0].CallerPC)
}

func TestDump_UnresolvedJumpIsDropped(t *testing.T) {
	// caller at 0x3000: push rbp (prologue, start-of-input); jmp rax
	// (register-indirect jump, e.g. a switch table); ret
	code := []byte{0x55, 0xFF, 0xE0, 0xC3}
	baseAddr := uint64(0x3000)

	dump, err := binscan.Dump(code, baseAddr, binscan.ArchAMD64, nil)
	require.NoError(t, err)

	g, err := callgraph.Parse(strings.NewReader(string(dump)))
	require.NoError(t, err)

	_, ok := g.CallSiteToCaller[0x3001]
	require.False(t, ok, "register-indirect jump must not become a call site")
	require.Empty(t, g.IndirCallSites)
}

func TestDump_UnresolvedCallBecomesIndirectSite(t *testing.T) {
	// caller at 0x2000: push rbp (prologue, start-of-input); call rax
	// (register-indirect, unresolved); ret
	code := []byte{0x55, 0xFF, 0xD0, 0xC3}
	baseAddr := uint64(0x2000)

	dump, err := binscan.Dump(code, baseAddr, binscan.ArchAMD64, nil)
	require.NoError(t, err)

	g, err := callgraph.Parse(strings.NewReader(string(dump)))
	require.NoError(t, err)

	callerPC, ok := g.CallSiteToCaller[0x2001]
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), callerPC)
	_, isUnknownTyped := g.IndirCallUnknownType[0x2001]
	require.True(t, isUnknownTyped)
}
