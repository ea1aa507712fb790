package fphash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/stcompress/fphash"
)

func TestSum_Deterministic(t *testing.T) {
	trace := []uint64{0x110, 0x220, 0x330}
	h1 := fphash.Sum(trace, 1, 2)
	h2 := fphash.Sum(trace, 1, 2)
	require.Equal(t, h1, h2)
}

func TestSum_DifferentTracesDiffer(t *testing.T) {
	a := fphash.Sum([]uint64{0x110, 0x220}, 1, 2)
	b := fphash.Sum([]uint64{0x110, 0x221}, 1, 2)
	require.NotEqual(t, a, b)
}

// Property 5: two traces sharing a common prefix through depth pd1 (or
// pd2) must agree on the corresponding checkpoint, independent of what
// follows — this is what makes the DFS pruning sound.
func TestCheckpoint1_AgreesOnSharedPrefix(t *testing.T) {
	prefix := []uint64{0x10, 0x20}
	pd1, pd2 := 1, 3

	var hA, hB uint64
	for i, pc := range prefix {
		hA = fphash.Step(hA, pc, i, pd1, pd2)
		hB = fphash.Step(hB, pc, i, pd1, pd2)
	}
	hA = fphash.Step(hA, 0x30, len(prefix), pd1, pd2)
	hB = fphash.Step(hB, 0x31, len(prefix), pd1, pd2)

	require.Equal(t, fphash.Checkpoint1(hA), fphash.Checkpoint1(hB))
}

func TestCheckpoint2_DiffersAfterDivergenceBeforePd2(t *testing.T) {
	pd1, pd2 := 0, 2

	full := []uint64{0x10, 0x20, 0x30}
	hA := fphash.Sum(full, pd1, pd2)

	diverged := []uint64{0x10, 0x21, 0x30}
	hB := fphash.Sum(diverged, pd1, pd2)

	require.NotEqual(t, fphash.Checkpoint2(hA), fphash.Checkpoint2(hB))
}

func TestStep_PreservesUpperBitsOutsideCheckpoints(t *testing.T) {
	pd1, pd2 := 5, 9
	var h uint64 = 0xDEAD_BEEF_0000_0000
	got := fphash.Step(h, 0x123, 3, pd1, pd2)
	require.Equal(t, h&0xFFFF_FFFF_0000_0000, got&0xFFFF_FFFF_0000_0000)
}
