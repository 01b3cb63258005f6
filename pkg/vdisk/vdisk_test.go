package vdisk_test

import (
	"encoding/binary"
	"testing"

	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vdisk"
	"github.com/stretchr/testify/require"
)

func buildFooter(t *testing.T, diskType vdisk.DiskType, dataOffset, currentSize uint64) []byte {
	t.Helper()
	buf := make([]byte, vdisk.FooterSize)
	copy(buf[0:8], "conectix")
	binary.BigEndian.PutUint64(buf[16:24], dataOffset)
	binary.BigEndian.PutUint64(buf[48:56], currentSize)
	binary.BigEndian.PutUint32(buf[60:64], uint32(diskType))

	var sum uint32
	for i, b := range buf {
		if i >= 64 && i < 68 {
			continue
		}
		sum += uint32(b)
	}
	binary.BigEndian.PutUint32(buf[64:68], ^sum)
	return buf
}

func TestParseFooterFixed(t *testing.T) {
	buf := buildFooter(t, vdisk.DiskTypeFixed, 0xFFFFFFFFFFFFFFFF, 4096)
	f, err := vdisk.ParseFooter(buf)
	require.NoError(t, err)
	require.Equal(t, vdisk.DiskTypeFixed, f.DiskType)
	require.Equal(t, uint64(4096), f.CurrentSize)
}

func TestParseFooterRejectsBadCookie(t *testing.T) {
	buf := buildFooter(t, vdisk.DiskTypeFixed, 0, 4096)
	buf[0] = 'x'
	_, err := vdisk.ParseFooter(buf)
	require.Error(t, err)
}

func TestParseFooterRejectsBadChecksum(t *testing.T) {
	buf := buildFooter(t, vdisk.DiskTypeFixed, 0, 4096)
	buf[64] ^= 0xFF
	_, err := vdisk.ParseFooter(buf)
	require.Error(t, err)
}

func TestFixedDiskReadsUnderlyingPayload(t *testing.T) {
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}
	footerBuf := buildFooter(t, vdisk.DiskTypeFixed, 0xFFFFFFFFFFFFFFFF, uint64(len(payload)))

	whole := append(append([]byte{}, payload...), footerBuf...)
	src := sparse.NewReaderAtStream(byteReader(whole), int64(len(whole)))

	footer, err := vdisk.ParseFooter(footerBuf)
	require.NoError(t, err)

	disk, err := vdisk.OpenFixed(src, footer)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), disk.Size())

	got := make([]byte, 16)
	n, err := disk.ReadAt(got, 100)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	require.Equal(t, payload[100:116], got)
}

// byteReader is a tiny io.ReaderAt over a fixed slice, local to this test
// file so the sparse package's own test helpers aren't exported.
type byteReaderAt []byte

func byteReader(b []byte) byteReaderAt { return byteReaderAt(b) }

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, nil
	}
	n := copy(p, b[off:])
	return n, nil
}

func TestBlockStateString(t *testing.T) {
	require.Equal(t, "FullyPresent", vdisk.BlockFullyPresent.String())
	require.Equal(t, "Unmapped", vdisk.BlockUnmapped.String())
}
