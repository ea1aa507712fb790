package callgraph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stcompress/callgraph"
)

func TestParse_Functions(t *testing.T) {
	dump := `FUNCTIONS
100 main
200 helper

`
	g, err := callgraph.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	require.Equal(t, "main", g.FuncNames[0x100])
	require.Equal(t, "helper", g.FuncNames[0x200])
	require.Equal(t, uint64(0x100), g.NameToPC["main"])
}

func TestParse_DirectCallSites(t *testing.T) {
	dump := `FUNCTIONS
100 main
200 helper

DIRECT CALL SITES
100 110 200

`
	g, err := callgraph.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	require.Equal(t, uint64(0x100), g.CallSiteToCaller[0x110])
	require.Equal(t, []callgraph.DirectCall{{SitePC: 0x110, TargetPC: 0x200}}, g.FuncToDirCallSites[0x100])
}

func TestParse_DuplicateHeaderIsFatal(t *testing.T) {
	dump := `FUNCTIONS
100 main

FUNCTIONS
200 helper

`
	_, err := callgraph.Parse(strings.NewReader(dump))
	require.ErrorIs(t, err, callgraph.ErrInputMalformed)
}

func TestParse_TruncatedDirectPairIsFatal(t *testing.T) {
	dump := `DIRECT CALL SITES
100 110 200 120

`
	_, err := callgraph.Parse(strings.NewReader(dump))
	require.ErrorIs(t, err, callgraph.ErrInputMalformed)
}

func TestParse_UnreadableHexTokenIsFatal(t *testing.T) {
	dump := `FUNCTIONS
zzz main

`
	_, err := callgraph.Parse(strings.NewReader(dump))
	require.ErrorIs(t, err, callgraph.ErrInputMalformed)
}

func TestParse_UnknownHeaderIsIgnored(t *testing.T) {
	dump := `SOME UNKNOWN SECTION
garbage line

FUNCTIONS
100 main

`
	g, err := callgraph.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	require.Equal(t, "main", g.FuncNames[0x100])
}

func TestParse_IndirectTargetsAndUnknownSet(t *testing.T) {
	dump := `INDIRECT TARGET TYPES
7 400
UNKNOWN 500

FUNCTIONS
400 vfuncA
500 vfuncB

`
	g, err := callgraph.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	require.Equal(t, uint64(7), g.IndirTargetToTypeID[0x400])
	_, unknown := g.IndirTargetUnknown[0x500]
	require.True(t, unknown)
	// TargetsWithNoInfo excludes both typed and unknown-typed targets.
	_, noInfo400 := g.TargetsWithNoInfo[0x400]
	_, noInfo500 := g.TargetsWithNoInfo[0x500]
	require.False(t, noInfo400)
	require.False(t, noInfo500)
}

func TestParse_TargetsWithNoInfo(t *testing.T) {
	dump := `FUNCTIONS
100 main

`
	g, err := callgraph.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	_, ok := g.TargetsWithNoInfo[0x100]
	require.True(t, ok)
}

func TestParse_IndirCallUnknownType(t *testing.T) {
	dump := `INDIRECT CALL TYPES
7 130

FUNCTIONS
100 main

INDIRECT CALL SITES
100 130 140

`
	g, err := callgraph.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	// Site 130 has a known type-id (7); site 140 does not.
	_, unknown130 := g.IndirCallUnknownType[0x130]
	_, unknown140 := g.IndirCallUnknownType[0x140]
	require.False(t, unknown130)
	require.True(t, unknown140)
}
