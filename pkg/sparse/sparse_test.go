package sparse_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCoalescesAdjacentAndOverlapping(t *testing.T) {
	es := sparse.Normalize([]sparse.Extent{
		{Offset: 10, Length: 5}, // [10,15)
		{Offset: 0, Length: 10}, // [0,10) adjacent to the first
		{Offset: 20, Length: 0}, // zero-length, dropped
		{Offset: 30, Length: 5}, // [30,35)
		{Offset: 32, Length: 5}, // [32,37) overlaps the previous
	})

	require.Equal(t, sparse.Extents{
		{Offset: 0, Length: 15},
		{Offset: 30, Length: 7},
	}, es)
}

func TestUnionIntersectSubtract(t *testing.T) {
	a := sparse.Normalize([]sparse.Extent{{Offset: 0, Length: 10}, {Offset: 20, Length: 10}})
	b := sparse.Normalize([]sparse.Extent{{Offset: 5, Length: 10}, {Offset: 25, Length: 10}})

	require.Equal(t, sparse.Extents{
		{Offset: 0, Length: 15},
		{Offset: 20, Length: 15},
	}, sparse.Union(a, b))

	require.Equal(t, sparse.Extents{
		{Offset: 5, Length: 5},
		{Offset: 25, Length: 5},
	}, sparse.Intersect(a, b))

	require.Equal(t, sparse.Extents{
		{Offset: 0, Length: 5},
		{Offset: 20, Length: 5},
	}, sparse.Subtract(a, b))
}

func TestComplement(t *testing.T) {
	a := sparse.Normalize([]sparse.Extent{{Offset: 5, Length: 5}, {Offset: 20, Length: 5}})
	require.Equal(t, sparse.Extents{
		{Offset: 0, Length: 5},
		{Offset: 10, Length: 10},
		{Offset: 25, Length: 5},
	}, sparse.Complement(a, 30))
}

func TestContains(t *testing.T) {
	es := sparse.Normalize([]sparse.Extent{{Offset: 0, Length: 10}})
	require.True(t, es.Contains(2, 5))
	require.False(t, es.Contains(8, 5))
}

func TestSubStreamReadAtAndExtents(t *testing.T) {
	data := []byte("0123456789ABCDEFGHIJ")
	base := sparse.NewReaderAtStream(bytes.NewReader(data), int64(len(data)))

	sub, err := sparse.NewSubStream(base, 10, 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), sub.Size())

	buf := make([]byte, 5)
	n, err := sub.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "ABCDE", string(buf))

	_, err = sparse.NewSubStream(base, 18, 5)
	require.Error(t, err)
}

func TestZeroStreamReadsZeroes(t *testing.T) {
	z := sparse.NewZeroStream(8)
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = 0xFF
	}
	n, err := z.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, make([]byte, 8), buf)
}

func TestConcatStreamReadAtAcrossParts(t *testing.T) {
	p1 := sparse.NewReaderAtStream(bytes.NewReader([]byte("abc")), 3)
	p2 := sparse.NewReaderAtStream(bytes.NewReader([]byte("defgh")), 5)
	c := sparse.NewConcatStream([]sparse.Stream{p1, p2})

	require.Equal(t, int64(8), c.Size())

	buf := make([]byte, 8)
	n, err := c.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, "abcdefgh", string(buf))

	buf2 := make([]byte, 4)
	n, err = c.ReadAt(buf2, 2)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "cdef", string(buf2))
}

func TestBufferedStreamMatchesDirectReads(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	src := sparse.NewReaderAtStream(bytes.NewReader(data), int64(len(data)))
	buffered := sparse.NewBufferedStream(src, 256)

	for _, off := range []int64{0, 10, 300, 4000} {
		want := make([]byte, 64)
		_, err := src.ReadAt(want, off)
		if off+64 > int64(len(data)) {
			want = want[:int64(len(data))-off]
		}
		require.NoError(t, err)

		got := make([]byte, len(want))
		_, err = buffered.ReadAt(got, off)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestHashStreamRequiresSequentialReads(t *testing.T) {
	data := []byte("hello world")
	src := sparse.NewReaderAtStream(bytes.NewReader(data), int64(len(data)))
	hs := sparse.NewHashStream(src, newFNV())

	buf := make([]byte, 5)
	_, err := hs.ReadAt(buf, 0)
	require.NoError(t, err)

	_, err = hs.ReadAt(buf, 8)
	require.Error(t, err)
}

func TestChunkBufferSlidesForward(t *testing.T) {
	var data []byte
	for i := 0; i < 100; i++ {
		data = append(data, byte(i))
	}
	cb, err := sparse.NewChunkBuffer(bytes.NewReader(data), 16, 4)
	require.NoError(t, err)

	chunk, err := cb.Chunk(0)
	require.NoError(t, err)
	require.Equal(t, data[0:4], chunk)

	require.NoError(t, cb.EnsureChunkIsBuffered(5))
	chunk, err = cb.Chunk(5)
	require.NoError(t, err)
	require.Equal(t, data[20:24], chunk)

	err = cb.EnsureChunkIsBuffered(1)
	require.Error(t, err)
}

// newFNV avoids importing crypto hashers just to exercise sequentiality.
type fnv32 struct{ sum uint32 }

func newFNV() *fnv32 { return &fnv32{sum: 2166136261} }
func (f *fnv32) Write(p []byte) (int, error) {
	for _, b := range p {
		f.sum ^= uint32(b)
		f.sum *= 16777619
	}
	return len(p), nil
}
func (f *fnv32) Sum(b []byte) []byte { return append(b, byte(f.sum>>24), byte(f.sum>>16), byte(f.sum>>8), byte(f.sum)) }
func (f *fnv32) Reset()              { f.sum = 2166136261 }
func (f *fnv32) Size() int           { return 4 }
func (f *fnv32) BlockSize() int      { return 1 }

var _ io.Writer = (*fnv32)(nil)
