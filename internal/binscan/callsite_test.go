package binscan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stcompress/internal/binscan"
)

func TestDetectCallSites_RelativeCallResolved(t *testing.T) {
	// call +0 (targets the instruction immediately following itself)
	code := []byte{0xE8, 0x00, 0x00, 0x00, 0x00}
	edges, err := binscan.DetectCallSites(code, 0x1000, binscan.ArchAMD64)
	require.NoError(t, err)
	require.Equal(t, []binscan.Edge{{
		SourceAddr: 0x1000, TargetAddr: 0x1005,
		Kind: binscan.CallSiteCall, Mode: binscan.AddressingPCRelative, Resolved: true,
	}}, edges)
}

func TestDetectCallSites_RegisterIndirectUnresolved(t *testing.T) {
	// call rax
	code := []byte{0xFF, 0xD0}
	edges, err := binscan.DetectCallSites(code, 0x2000, binscan.ArchAMD64)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, binscan.CallSiteCall, edges[0].Kind)
	require.Equal(t, binscan.AddressingRegisterIndirect, edges[0].Mode)
	require.False(t, edges[0].Resolved)
}

func TestDetectCallSites_SkipsENDBR64(t *testing.T) {
	code := []byte{0xF3, 0x0F, 0x1E, 0xFA, 0xE8, 0x00, 0x00, 0x00, 0x00}
	edges, err := binscan.DetectCallSites(code, 0x3000, binscan.ArchAMD64)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, uint64(0x3004), edges[0].SourceAddr)
}

func TestDetectCallSites_JMPIsTailCallEdge(t *testing.T) {
	// jmp +0
	code := []byte{0xE9, 0x00, 0x00, 0x00, 0x00}
	edges, err := binscan.DetectCallSites(code, 0x4000, binscan.ArchAMD64)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, binscan.CallSiteJump, edges[0].Kind)
	require.True(t, edges[0].Resolved)
}

func TestDetectCallSites_ARM64BranchWithLink(t *testing.T) {
	// bl #4
	code := []byte{0x01, 0x00, 0x00, 0x94}
	edges, err := binscan.DetectCallSites(code, 0x5000, binscan.ArchARM64)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, binscan.CallSiteCall, edges[0].Kind)
	require.True(t, edges[0].Resolved)
	require.Equal(t, binscan.AddressingPCRelative, edges[0].Mode)
}

func TestDetectCallSites_UnsupportedArch(t *testing.T) {
	_, err := binscan.DetectCallSites(nil, 0, binscan.Arch(99))
	require.Error(t, err)
}
