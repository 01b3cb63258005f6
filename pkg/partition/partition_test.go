package partition_test

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/corehound/diskvfs/pkg/partition"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
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

func putMBREntry(sector []byte, idx int, bootable bool, typ partition.MBRType, startLBA, sectors uint32) {
	off := 0x1BE + idx*16
	if bootable {
		sector[off] = 0x80
	}
	sector[off+4] = byte(typ)
	binary.LittleEndian.PutUint32(sector[off+8:off+12], startLBA)
	binary.LittleEndian.PutUint32(sector[off+12:off+16], sectors)
}

func TestReadMBRSinglePrimaryPartition(t *testing.T) {
	disk := make([]byte, 64*512)
	putMBREntry(disk[:512], 0, true, partition.TypeLinux, 1, 10)
	disk[0x1FE] = 0x55
	disk[0x1FF] = 0xAA

	table, err := partition.ReadMBR(memDisk(disk))
	require.NoError(t, err)
	require.Equal(t, "mbr", table.Scheme)
	require.Len(t, table.Partitions, 1)
	require.Equal(t, uint64(512), table.Partitions[0].Offset)
	require.Equal(t, uint64(10*512), table.Partitions[0].Size)
	require.True(t, table.Partitions[0].Bootable)
}

func TestReadMBRRejectsBadSignature(t *testing.T) {
	disk := make([]byte, 512)
	_, err := partition.ReadMBR(memDisk(disk))
	require.Error(t, err)
}

func TestDetectFallsBackToWholeDisk(t *testing.T) {
	disk := make([]byte, 4096)
	table, err := partition.Detect(memDisk(disk))
	require.NoError(t, err)
	require.Equal(t, "none", table.Scheme)
	require.Len(t, table.Partitions, 1)
	require.Equal(t, uint64(4096), table.Partitions[0].Size)
}

func TestPartitionStreamCarvesSubRange(t *testing.T) {
	disk := make([]byte, 4096)
	for i := range disk {
		disk[i] = byte(i)
	}
	p := partition.Partition{Offset: 100, Size: 16}
	s, err := p.Stream(memDisk(disk))
	require.NoError(t, err)

	buf := make([]byte, 16)
	_, err = s.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, disk[100:116], buf)
}

// --- GPT fixtures ---
//
// Every fixture below lays out a 5-sector disk: LBA0 protective MBR, LBA1
// primary header, LBA2 primary entry array, LBA3 a second entry array
// (read only when a scenario falls back to the backup header), LBA4 backup
// header (disk.Size()/SectorSize-1, per ReadGPT). One basic-data-partition
// entry occupies slot 0 of each array; EntrySize*NumEntries is kept at
// exactly one sector (4*128) so no fixture needs multi-sector rounding.

var basicDataGUID = uuid.MustParse("EBD0A0A2-B9E5-4433-87C0-68B6B72699C7")

const (
	gptNumEntries = 4
	gptEntrySize  = 128
)

// putMixedEndianGUID writes u in the RFC-4122 "mixed-endian" encoding GPT
// entries use (first three fields little-endian, last two big-endian) — the
// exact inverse of gpt.go's guidFromMixedEndian.
func putMixedEndianGUID(dst []byte, u uuid.UUID) {
	binary.LittleEndian.PutUint32(dst[0:4], binary.BigEndian.Uint32(u[0:4]))
	binary.LittleEndian.PutUint16(dst[4:6], binary.BigEndian.Uint16(u[4:6]))
	binary.LittleEndian.PutUint16(dst[6:8], binary.BigEndian.Uint16(u[6:8]))
	copy(dst[8:16], u[8:16])
}

func gptEntryArrayBytes(firstLBA, lastLBA uint64) []byte {
	buf := make([]byte, gptNumEntries*gptEntrySize)
	e := buf[0:gptEntrySize]
	putMixedEndianGUID(e[0:16], basicDataGUID)
	putMixedEndianGUID(e[16:32], uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	binary.LittleEndian.PutUint64(e[32:40], firstLBA)
	binary.LittleEndian.PutUint64(e[40:48], lastLBA)
	return buf
}

func gptHeaderBytes(currentLBA, backupLBA, entriesStartLBA uint64, entriesCRC32 uint32) []byte {
	buf := make([]byte, partition.GPTHeaderSize)
	copy(buf[0:8], "EFI PART")
	binary.LittleEndian.PutUint32(buf[8:12], 0x00010000) // revision 1.0
	binary.LittleEndian.PutUint32(buf[12:16], uint32(partition.GPTHeaderSize))
	binary.LittleEndian.PutUint64(buf[24:32], currentLBA)
	binary.LittleEndian.PutUint64(buf[32:40], backupLBA)
	binary.LittleEndian.PutUint64(buf[72:80], entriesStartLBA)
	binary.LittleEndian.PutUint32(buf[80:84], gptNumEntries)
	binary.LittleEndian.PutUint32(buf[84:88], gptEntrySize)
	binary.LittleEndian.PutUint32(buf[88:92], entriesCRC32)
	crc := crc32.ChecksumIEEE(buf) // buf[16:20] (the CRC field) is still zero here
	binary.LittleEndian.PutUint32(buf[16:20], crc)
	return buf
}

// gptDiskFixture builds the 5-sector disk described above and returns it
// along with both entry arrays' CRC32s, so a test can corrupt a header's
// EntriesCRC32 field deliberately.
func gptDiskFixture(t *testing.T) (disk []byte, primaryEntries, backupEntries []byte, primaryCRC, backupCRC uint32) {
	t.Helper()
	disk = make([]byte, 5*partition.SectorSize)

	mbrSector := disk[0:partition.SectorSize]
	putMBREntry(mbrSector, 0, false, partition.TypeGPTProtective, 1, 4)
	disk[0x1FE] = 0x55
	disk[0x1FF] = 0xAA

	primaryEntries = gptEntryArrayBytes(34, 100)
	backupEntries = gptEntryArrayBytes(34, 100)
	primaryCRC = crc32.ChecksumIEEE(primaryEntries)
	backupCRC = crc32.ChecksumIEEE(backupEntries)
	copy(disk[2*partition.SectorSize:], primaryEntries)
	copy(disk[3*partition.SectorSize:], backupEntries)

	primary := gptHeaderBytes(1, 4, 2, primaryCRC)
	backup := gptHeaderBytes(4, 1, 3, backupCRC)
	copy(disk[1*partition.SectorSize:], primary)
	copy(disk[4*partition.SectorSize:], backup)
	return disk, primaryEntries, backupEntries, primaryCRC, backupCRC
}

func TestReadGPTPrimaryAndBackupAgree(t *testing.T) {
	disk, _, _, _, _ := gptDiskFixture(t)

	table, err := partition.ReadGPT(memDisk(disk))
	require.NoError(t, err)
	require.Equal(t, "gpt", table.Scheme)
	require.Empty(t, table.Diagnostics)
	require.Len(t, table.Partitions, 1)
	require.Equal(t, uint64(34)*partition.SectorSize, table.Partitions[0].Offset)
	require.Equal(t, uint64(100-34+1)*partition.SectorSize, table.Partitions[0].Size)
}

func TestReadGPTFlagsBackupEntriesCRCDisagreement(t *testing.T) {
	disk, primaryEntries, _, primaryCRC, _ := gptDiskFixture(t)

	// Make the backup header's recorded entries CRC disagree with the
	// primary's, without touching either entries array on disk — spec.md's
	// scenario 4: the primary stays authoritative, but the disagreement is
	// surfaced as a diagnostic rather than silently ignored.
	backup := gptHeaderBytes(4, 1, 3, primaryCRC+1)
	copy(disk[4*partition.SectorSize:], backup)

	table, err := partition.ReadGPT(memDisk(disk))
	require.NoError(t, err)
	require.Len(t, table.Diagnostics, 1)
	require.Equal(t, "backup_out_of_sync", table.Diagnostics[0].Kind)
	require.Len(t, table.Partitions, 1)
	require.Equal(t, uint64(34)*partition.SectorSize, table.Partitions[0].Offset)
	require.Equal(t, crc32.ChecksumIEEE(primaryEntries), primaryCRC) // sanity: fixture wasn't mutated
}

func TestReadGPTFallsBackToBackupWhenPrimaryHeaderCorrupt(t *testing.T) {
	disk, _, _, _, _ := gptDiskFixture(t)

	// Corrupt the primary header's magic so parseGPTHeader rejects it
	// outright; the backup header (LBA4, pointing at the LBA3 entry array)
	// must still resolve the table.
	disk[1*partition.SectorSize] = 'X'

	table, err := partition.ReadGPT(memDisk(disk))
	require.NoError(t, err)
	require.Len(t, table.Diagnostics, 1)
	require.Equal(t, "backup_out_of_sync", table.Diagnostics[0].Kind)
	require.Len(t, table.Partitions, 1)
	require.Equal(t, uint64(34)*partition.SectorSize, table.Partitions[0].Offset)
}

func TestReadGPTFailsWhenPrimaryAndBackupBothCorrupt(t *testing.T) {
	disk, _, _, _, _ := gptDiskFixture(t)
	disk[1*partition.SectorSize] = 'X'
	disk[4*partition.SectorSize] = 'X'

	_, err := partition.ReadGPT(memDisk(disk))
	require.Error(t, err)
}

func TestReadGPTRejectsEntryArrayCRCMismatch(t *testing.T) {
	disk, _, _, _, _ := gptDiskFixture(t)
	disk[2*partition.SectorSize] ^= 0xFF // corrupt the primary entries without updating either CRC

	_, err := partition.ReadGPT(memDisk(disk))
	require.Error(t, err)
}
