package ntfs_test

import (
	"testing"
	"time"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/fs/ntfs"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
	"github.com/stretchr/testify/require"
)

type memReaderAt []byte

func (m memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m[off:])
	return n, nil
}

// asciiUTF16LE encodes an ASCII string as UTF-16LE bytes (no terminator).
func asciiUTF16LE(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, c := range s {
		out = append(out, byte(c), 0)
	}
	return out
}

const (
	attrStandardInformation = 0x10
	attrFileName            = 0x30
	attrData                = 0x80
	attrIndexRoot           = 0x90
)

// residentAttr builds a resident attribute record: a 24-byte common+resident
// header, an optional name, and the value, padded to an 8-byte boundary.
func residentAttr(attrType uint32, name string, value []byte) []byte {
	nameBytes := asciiUTF16LE(name)
	const headerLen = 24
	nameOffset := headerLen
	valueOffset := nameOffset + len(nameBytes)
	total := valueOffset + len(value)
	padded := (total + 7) / 8 * 8
	b := make([]byte, padded)
	bytesx.PutU32LE(b[0:4], attrType)
	bytesx.PutU32LE(b[4:8], uint32(padded))
	b[8] = 0 // resident
	b[9] = byte(len(name))
	bytesx.PutU16LE(b[10:12], uint16(nameOffset))
	bytesx.PutU32LE(b[16:20], uint32(len(value)))
	bytesx.PutU16LE(b[20:22], uint16(valueOffset))
	copy(b[nameOffset:nameOffset+len(nameBytes)], nameBytes)
	copy(b[valueOffset:valueOffset+len(value)], value)
	return b
}

// nonResidentAttr builds a non-resident attribute record: a 64-byte header,
// an optional name, and the run-list, padded to an 8-byte boundary.
func nonResidentAttr(attrType uint32, name string, lastVCN uint64, runlist []byte, allocSize, realSize, initSize uint64) []byte {
	nameBytes := asciiUTF16LE(name)
	const headerLen = 64
	nameOffset := headerLen
	runOffset := nameOffset + len(nameBytes)
	total := runOffset + len(runlist)
	padded := (total + 7) / 8 * 8
	b := make([]byte, padded)
	bytesx.PutU32LE(b[0:4], attrType)
	bytesx.PutU32LE(b[4:8], uint32(padded))
	b[8] = 1 // non-resident
	b[9] = byte(len(name))
	bytesx.PutU16LE(b[10:12], uint16(nameOffset))
	bytesx.PutU64LE(b[24:32], lastVCN)
	bytesx.PutU16LE(b[32:34], uint16(runOffset))
	bytesx.PutU64LE(b[40:48], allocSize)
	bytesx.PutU64LE(b[48:56], realSize)
	bytesx.PutU64LE(b[56:64], initSize)
	copy(b[nameOffset:nameOffset+len(nameBytes)], nameBytes)
	copy(b[runOffset:runOffset+len(runlist)], runlist)
	return b
}

func standardInfoValue(ft uint64, attrFlags uint32) []byte {
	b := make([]byte, 36)
	bytesx.PutU64LE(b[0:8], ft)
	bytesx.PutU64LE(b[8:16], ft)
	bytesx.PutU64LE(b[16:24], ft)
	bytesx.PutU64LE(b[24:32], ft)
	bytesx.PutU32LE(b[32:36], attrFlags)
	return b
}

func fileNameValue(parentRef, allocSize, realSize uint64, flags uint32, name string, namespace byte) []byte {
	nameBytes := asciiUTF16LE(name)
	b := make([]byte, 66+len(nameBytes))
	bytesx.PutU64LE(b[0:8], parentRef)
	bytesx.PutU64LE(b[40:48], allocSize)
	bytesx.PutU64LE(b[48:56], realSize)
	bytesx.PutU32LE(b[56:60], flags)
	b[64] = byte(len(name))
	b[65] = namespace
	copy(b[66:], nameBytes)
	return b
}

func indexEntry(fileRef uint64, key []byte, last bool) []byte {
	flags := uint16(0)
	keyLen := 0
	if last {
		flags |= 0x0002
	} else {
		keyLen = len(key)
	}
	entryLen := 16 + keyLen
	b := make([]byte, entryLen)
	bytesx.PutU64LE(b[0:8], fileRef)
	bytesx.PutU16LE(b[8:10], uint16(entryLen))
	bytesx.PutU16LE(b[10:12], uint16(keyLen))
	bytesx.PutU16LE(b[12:14], flags)
	if !last {
		copy(b[16:16+keyLen], key)
	}
	return b
}

func indexRootValue(entries []byte) []byte {
	const preambleLen = 16
	const headerLen = 16
	b := make([]byte, preambleLen+headerLen+len(entries))
	bytesx.PutU32LE(b[0:4], attrFileName) // collated attribute type
	bytesx.PutU32LE(b[4:8], 0x01)         // COLLATION_FILENAME
	bytesx.PutU32LE(b[8:12], 512)
	b[12] = 1
	bytesx.PutU32LE(b[16:20], uint32(headerLen))             // entries_offset
	bytesx.PutU32LE(b[20:24], uint32(headerLen+len(entries))) // index_length
	bytesx.PutU32LE(b[24:28], uint32(headerLen+len(entries))) // allocated_size
	copy(b[32:], entries)
	return b
}

// buildMFTRecord assembles a 512-byte MFT record with the teacher's
// update-sequence-array fix-up applied (a single 512-byte stride, USN=1,
// saved tail bytes are zero since the record's tail is unused padding).
func buildMFTRecord(recordNumber uint32, flags uint16, attrs ...[]byte) []byte {
	const recSize = 512
	const usaOffset = 48
	const usaCount = 2
	const firstAttrOffset = 56

	b := make([]byte, recSize)
	copy(b[0:4], "FILE")
	bytesx.PutU16LE(b[4:6], usaOffset)
	bytesx.PutU16LE(b[6:8], usaCount)
	bytesx.PutU16LE(b[16:18], 1) // sequence number
	bytesx.PutU16LE(b[18:20], 1) // hard link count
	bytesx.PutU16LE(b[20:22], firstAttrOffset)
	bytesx.PutU16LE(b[22:24], flags)

	pos := firstAttrOffset
	for _, a := range attrs {
		copy(b[pos:pos+len(a)], a)
		pos += len(a)
	}
	bytesx.PutU32LE(b[24:28], uint32(pos))
	bytesx.PutU64LE(b[32:40], 0)
	bytesx.PutU32LE(b[44:48], recordNumber)

	const usn = uint16(1)
	original := append([]byte(nil), b[recSize-2:recSize]...)
	bytesx.PutU16LE(b[usaOffset:usaOffset+2], usn)
	copy(b[usaOffset+2:usaOffset+4], original)
	bytesx.PutU16LE(b[recSize-2:recSize], usn)
	return b
}

func buildBootSector() []byte {
	b := make([]byte, 512)
	copy(b[3:11], "NTFS    ")
	bytesx.PutU16LE(b[11:13], 512) // bytes per sector
	b[13] = 1                     // sectors per cluster -> 512-byte clusters
	bytesx.PutU64LE(b[40:48], 8)  // total sectors (8 clusters)
	bytesx.PutU64LE(b[48:56], 1)  // $MFT LCN
	bytesx.PutU64LE(b[56:64], 1)  // $MFTMirr LCN (unused by this reader)
	b[64] = byte(int8(-9))        // clusters per MFT record: 2^9 = 512 bytes
	b[68] = byte(int8(1))         // clusters per index block: 1 cluster
	bytesx.PutU64LE(b[72:80], 0xDEADBEEF)
	return b
}

const helloFiletime uint64 = 116444736000000000 + 1700000000*10000000

// buildVolume assembles an 8-cluster (4096-byte), 512-byte-cluster NTFS
// volume by hand: a boot sector, $MFT record 0 whose own DATA attribute's
// run-list addresses the 7 clusters holding records 0-6, four unused
// records (1-4), a root directory (record 5) with a resident INDEX_ROOT naming
// "hello.txt", and that file's record (6) with STANDARD_INFORMATION,
// FILE_NAME and a resident DATA attribute.
//
// staleDirSize lets the FILE_NAME attribute's recorded size diverge from the
// DATA attribute's real size, exercising Options.FileLengthFromDirectoryEntries.
func buildVolume(staleDirSize uint64) []byte {
	const rootFileRef = uint64(1)<<48 | 5
	const helloFileRef = uint64(1)<<48 | 6
	content := []byte("hello\n")

	// record 0: $MFT, DATA attribute addressing clusters 1..7 (7 clusters).
	runlist := []byte{0x11, 0x07, 0x01, 0x00} // len=7, delta LCN=+1, end
	mftData := nonResidentAttr(attrData, "", 6, runlist, 7*512, 7*512, 7*512)
	record0 := buildMFTRecord(0, 0x0001, mftData)

	zeroRecord := make([]byte, 512)

	// record 5: root directory.
	rootStdInfo := residentAttr(attrStandardInformation, "", standardInfoValue(helloFiletime, 0))
	helloKey := fileNameValue(rootFileRef, 1024, staleDirSize, 0, "hello.txt", 1)
	entries := append(append([]byte{}, indexEntry(helloFileRef, helloKey, false)...), indexEntry(0, nil, true)...)
	indexRoot := residentAttr(attrIndexRoot, "$I30", indexRootValue(entries))
	record5 := buildMFTRecord(5, 0x0003, rootStdInfo, indexRoot)

	// record 6: hello.txt.
	fileStdInfo := residentAttr(attrStandardInformation, "", standardInfoValue(helloFiletime, 0))
	fileName := residentAttr(attrFileName, "", fileNameValue(rootFileRef, 1024, staleDirSize, 0, "hello.txt", 1))
	dataAttr := residentAttr(attrData, "", content)
	record6 := buildMFTRecord(6, 0x0001, fileStdInfo, fileName, dataAttr)

	img := append([]byte{}, buildBootSector()...)
	img = append(img, record0...)
	img = append(img, zeroRecord...) // record 1
	img = append(img, zeroRecord...) // record 2
	img = append(img, zeroRecord...) // record 3
	img = append(img, zeroRecord...) // record 4
	img = append(img, record5...)
	img = append(img, record6...)
	return img
}

func TestMountEnumerateAndRead(t *testing.T) {
	img := buildVolume(6)
	stream := sparse.NewReaderAtStream(memReaderAt(img), int64(len(img)))

	require.True(t, ntfs.Detect(stream))

	fs, err := ntfs.Mount(stream, vfs.Options{})
	require.NoError(t, err)

	entries, err := fs.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name)
	require.Equal(t, vfs.KindFile, entries[0].Kind)

	length, err := fs.Length("hello.txt")
	require.NoError(t, err)
	require.EqualValues(t, 6, length)

	stream2, err := fs.OpenFile("hello.txt")
	require.NoError(t, err)
	buf := make([]byte, 6)
	require.NoError(t, sparse.ReadFull(stream2, buf, 0))
	require.Equal(t, "hello\n", string(buf))

	attrs, err := fs.Attributes("hello.txt")
	require.NoError(t, err)
	require.Equal(t, vfs.KindFile, attrs.Kind)
	require.EqualValues(t, 6, attrs.Length)
	require.False(t, attrs.ReadOnly)
	require.False(t, attrs.Hidden)
	require.False(t, attrs.System)

	times, err := fs.ModTimes("hello.txt")
	require.NoError(t, err)
	want := time.Unix(1700000000, 0).UTC()
	require.Equal(t, want, times.Created)
	require.Equal(t, want, times.Modified)
	require.Equal(t, want, times.Accessed)

	extents, err := fs.PathToExtents("hello.txt")
	require.NoError(t, err)
	require.Empty(t, extents) // resident content has no on-disk extents

	_, ok, err := fs.Unix("hello.txt")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLengthFromDirectoryEntriesOption(t *testing.T) {
	img := buildVolume(999) // FILE_NAME records a stale size
	stream := sparse.NewReaderAtStream(memReaderAt(img), int64(len(img)))

	fs, err := ntfs.Mount(stream, vfs.Options{})
	require.NoError(t, err)
	length, err := fs.Length("hello.txt")
	require.NoError(t, err)
	require.EqualValues(t, 6, length, "default mode reports the authoritative $DATA size")

	stream2 := sparse.NewReaderAtStream(memReaderAt(img), int64(len(img)))
	fsStale, err := ntfs.Mount(stream2, vfs.Options{FileLengthFromDirectoryEntries: true})
	require.NoError(t, err)
	staleLength, err := fsStale.Length("hello.txt")
	require.NoError(t, err)
	require.EqualValues(t, 999, staleLength)
}

func TestDetectRejectsNonNTFSImage(t *testing.T) {
	img := make([]byte, 512)
	stream := sparse.NewReaderAtStream(memReaderAt(img), int64(len(img)))
	require.False(t, ntfs.Detect(stream))
}
