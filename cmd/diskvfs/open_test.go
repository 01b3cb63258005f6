package diskvfs

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corehound/diskvfs/pkg/partition"
	"github.com/corehound/diskvfs/pkg/sparse"
)

type memDisk []byte

func (m memDisk) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, nil
	}
	return copy(p, m[off:]), nil
}
func (m memDisk) Size() int64 { return int64(len(m)) }
func (m memDisk) Extents(offset, length int64) (sparse.Extents, error) {
	return sparse.Extents{{Offset: 0, Length: uint64(len(m))}}, nil
}

func putMBREntry(sector []byte, idx int, typ partition.MBRType, startLBA, sectors uint32) {
	off := 0x1BE + idx*16
	sector[off+4] = byte(typ)
	binary.LittleEndian.PutUint32(sector[off+8:off+12], startLBA)
	binary.LittleEndian.PutUint32(sector[off+12:off+16], sectors)
}

func TestResolveVolumeFallsBackToWholeDisk(t *testing.T) {
	disk := memDisk(make([]byte, 4096))

	vol, err := resolveVolume(disk, -1, "")
	require.NoError(t, err)
	require.Equal(t, int64(4096), vol.stream.Size())
}

func TestResolveVolumeSelectsSolePartition(t *testing.T) {
	disk := make([]byte, 64*512)
	putMBREntry(disk[:512], 0, partition.TypeLinux, 1, 10)
	disk[0x1FE] = 0x55
	disk[0x1FF] = 0xAA

	vol, err := resolveVolume(memDisk(disk), -1, "")
	require.NoError(t, err)
	require.Equal(t, int64(10*512), vol.stream.Size())
	require.Equal(t, "partition 1", vol.label)
}

func TestResolveVolumeRequiresIndexWhenAmbiguous(t *testing.T) {
	disk := make([]byte, 64*512)
	putMBREntry(disk[:512], 0, partition.TypeLinux, 1, 10)
	putMBREntry(disk[:512], 1, partition.TypeLinux, 20, 10)
	disk[0x1FE] = 0x55
	disk[0x1FF] = 0xAA

	_, err := resolveVolume(memDisk(disk), -1, "")
	require.Error(t, err)

	vol, err := resolveVolume(memDisk(disk), 2, "")
	require.NoError(t, err)
	require.Equal(t, "partition 2", vol.label)
}
