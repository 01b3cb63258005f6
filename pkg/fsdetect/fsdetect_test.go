package fsdetect_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/fsdetect"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/stretchr/testify/require"
)

type memVolume []byte

func (m memVolume) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, nil
	}
	n := copy(p, m[off:])
	if n < len(p) {
		return n, nil
	}
	return n, nil
}

func (m memVolume) Size() int64 { return int64(len(m)) }

func (m memVolume) Extents(offset, length int64) (sparse.Extents, error) {
	return sparse.Extents{{Offset: 0, Length: uint64(len(m))}}, nil
}

func withSignature(size int, offset int64, magic []byte) memVolume {
	buf := make(memVolume, size)
	copy(buf[offset:], magic)
	return buf
}

func TestDetectEachBuiltinKind(t *testing.T) {
	reg := fsdetect.DefaultRegistry()

	cases := []struct {
		name string
		vol  memVolume
		want fsdetect.Kind
	}{
		{"wim", withSignature(64, 0, []byte("MSWIM\x00\x00\x00")), fsdetect.WIM},
		{"ntfs", withSignature(512, 3, []byte("NTFS    ")), fsdetect.NTFS},
		{"ext", withSignature(2048, 0x438, []byte{0x53, 0xEF}), fsdetect.Ext},
		{"hfsplus", withSignature(2048, 1024, []byte("H+")), fsdetect.HFSPlus},
		{"hfsx", withSignature(2048, 1024, []byte("HX")), fsdetect.HFSPlus},
		{"iso9660", withSignature(40000, 32769, []byte("CD001")), fsdetect.ISO9660},
		{"udf-nsr02", withSignature(40000, 32768+2048+1, []byte("NSR02")), fsdetect.UDF},
		{"fat16", withSignature(512, 0x36, []byte("FAT16   ")), fsdetect.FAT},
		{"fat32", withSignature(512, 0x52, []byte("FAT32   ")), fsdetect.FAT},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := reg.Detect(tc.vol)
			require.True(t, ok)
			require.Equal(t, tc.want, kind)
		})
	}
}

func TestDetectReturnsUnknownForGarbage(t *testing.T) {
	reg := fsdetect.DefaultRegistry()
	vol := make(memVolume, 4096)
	for i := range vol {
		vol[i] = 0x42
	}
	kind, ok := reg.Detect(vol)
	require.False(t, ok)
	require.Equal(t, fsdetect.Unknown, kind)
}

func TestRegistryAddMergesSameOffsetSignatures(t *testing.T) {
	reg := fsdetect.NewRegistry()
	reg.Add(fsdetect.Signature{Kind: fsdetect.FAT, Offset: 0x36, Magic: []byte("FAT12   ")})
	reg.Add(fsdetect.Signature{Kind: fsdetect.FAT, Offset: 0x36, Magic: []byte("FAT16   ")})

	vol := withSignature(512, 0x36, []byte("FAT12   "))
	kind, ok := reg.Detect(vol)
	require.True(t, ok)
	require.Equal(t, fsdetect.FAT, kind)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "ntfs", fsdetect.NTFS.String())
	require.Equal(t, "unknown", fsdetect.Unknown.String())
}
