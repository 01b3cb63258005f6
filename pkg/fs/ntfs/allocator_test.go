package ntfs_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/fs/ntfs"
	"github.com/stretchr/testify/require"
)

// buildScatteredBitmap marks clusters 30, 56, 77 and 93 as in-use within a
// 104-cluster volume, leaving free runs of length 30, 25, 20, 15 and 10 —
// no single run large enough to satisfy a 100-cluster request on its own.
func buildScatteredBitmap() []byte {
	bitmap := make([]byte, 13) // 104 clusters / 8
	for _, c := range []int{30, 56, 77, 93} {
		bitmap[c/8] |= 1 << uint(c%8)
	}
	return bitmap
}

func TestAllocatorFragmentationLatch(t *testing.T) {
	const totalClusters = 104
	bitmap := buildScatteredBitmap()

	var contiguousScans int
	var entered, reset int
	probe := &ntfs.AllocatorProbe{
		OnContiguousScan:        func(requested uint64) { contiguousScans++ },
		OnFragmentedModeEntered: func() { entered++ },
		OnFragmentedModeReset:   func() { reset++ },
	}
	alloc := ntfs.NewAllocator(bitmap, totalClusters, probe)

	// No single free run reaches 100, so the allocator must fall back to
	// accumulating every scattered run; it wants all 100 free clusters.
	runs, err := alloc.Allocate(100, 999)
	require.NoError(t, err)
	require.Len(t, runs, 5)
	require.Equal(t, 1, contiguousScans)
	require.Equal(t, 1, entered, "fragmented mode latches after a multi-run allocation")
	require.Equal(t, 0, reset)

	// Free the 30-cluster run back so a single contiguous span exists again.
	alloc.Free([]ntfs.ClusterRun{{Start: 0, Length: 30}})

	// A second, smaller request that WOULD fit in the freed contiguous span
	// must still skip the contiguous-range pass: the latch is still set.
	runs2, err := alloc.Allocate(20, 999)
	require.NoError(t, err)
	require.Len(t, runs2, 1)
	require.Equal(t, ntfs.ClusterRun{Start: 0, Length: 20}, runs2[0])
	require.Equal(t, 1, contiguousScans, "fragmented mode must skip the contiguous scan")
	require.Equal(t, 1, reset, "a single run of at least 4 clusters resets the latch")
}

func TestAllocatorExtendsExistingRun(t *testing.T) {
	bitmap := make([]byte, 4) // 32 clusters, all free
	alloc := ntfs.NewAllocator(bitmap, 32, nil)

	runs, err := alloc.Allocate(5, 10)
	require.NoError(t, err)
	require.Equal(t, []ntfs.ClusterRun{{Start: 10, Length: 5}}, runs)

	// A follow-up request proposing to extend right where the first run
	// ended should be satisfied entirely by step 1, as a single run.
	runs2, err := alloc.Allocate(3, 15)
	require.NoError(t, err)
	require.Equal(t, []ntfs.ClusterRun{{Start: 15, Length: 3}}, runs2)
}

func TestAllocatorOutOfSpaceRollsBack(t *testing.T) {
	bitmap := make([]byte, 1) // 8 clusters, all free
	alloc := ntfs.NewAllocator(bitmap, 8, nil)

	_, err := alloc.Allocate(20, 0)
	require.Error(t, err)

	// Every cluster claimed during the failed attempt must be unmarked.
	runs, err := alloc.Allocate(8, 0)
	require.NoError(t, err)
	require.Equal(t, []ntfs.ClusterRun{{Start: 0, Length: 8}}, runs)
}
