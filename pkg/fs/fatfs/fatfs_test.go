package fatfs_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/fs/fatfs"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
	"github.com/stretchr/testify/require"
)

func buildFAT12Image(t *testing.T) []byte {
	t.Helper()
	const sectorSize = 512
	data := make([]byte, 32*sectorSize)

	data[11], data[12] = 0, 2 // bytes_per_sector = 512
	data[13] = 1              // sectors_per_cluster = 1
	bytesx.PutU16LE(data[14:], 1) // reserved_sectors = 1
	data[16] = 1                  // num_fats = 1
	bytesx.PutU16LE(data[17:], 16) // root_entry_count = 16
	bytesx.PutU16LE(data[19:], 32) // total_sectors_16
	bytesx.PutU16LE(data[22:], 1)  // sectors_per_fat_16
	copy(data[0x36:], "FAT12   ")

	// FAT table region starts at byte 512; set FAT[3] = 0xFFF (EOF).
	data[512+4] = 0xF0
	data[512+5] = 0xFF

	// Root directory region starts at byte 1024.
	entry := data[1024 : 1024+32]
	copy(entry[0:8], "HELLO   ")
	copy(entry[8:11], "TXT")
	entry[11] = 0x20 // archive
	bytesx.PutU16LE(entry[26:], 3) // first cluster
	bytesx.PutU32LE(entry[28:], 5) // size

	// File data at cluster 3 => sector 4 => byte offset 2048.
	copy(data[2048:], "hello")

	return data
}

func TestFAT12MountEnumerateAndRead(t *testing.T) {
	data := buildFAT12Image(t)
	stream := sparse.NewReaderAtStream(memReaderAt(data), int64(len(data)))

	require.True(t, fatfs.Detect(stream))

	fsys, err := fatfs.Mount(stream, vfs.Options{})
	require.NoError(t, err)

	entries, err := fsys.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "HELLO.TXT", entries[0].Name)

	length, err := fsys.Length("/HELLO.TXT")
	require.NoError(t, err)
	require.EqualValues(t, 5, length)

	stream2, err := fsys.OpenFile("/hello.txt") // case-insensitive lookup
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := stream2.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

// putLFNFragment writes one 32-byte long-filename directory entry: seq
// (with the 0x40 "last logical fragment" bit set by the caller when
// appropriate) and up to 13 UTF-16LE code units split 5/6/2 across bytes
// 1..10, 14..25, 28..31, terminated by a 0x0000 code unit when the name is
// shorter than 13 characters, per spec.md §4.5.6.
func putLFNFragment(e []byte, seq byte, chars []uint16) {
	e[11] = attrLFNForTest
	ranges := [][2]int{{1, 10}, {14, 25}, {28, 31}}
	idx := 0
	for _, r := range ranges {
		for off := r[0]; off+1 <= r[1]; off += 2 {
			if idx < len(chars) {
				bytesx.PutU16LE(e[off:], chars[idx])
				idx++
			} else if idx == len(chars) {
				bytesx.PutU16LE(e[off:], 0x0000)
				idx++
			} else {
				bytesx.PutU16LE(e[off:], 0xFFFF)
			}
		}
	}
	e[0] = seq
}

const attrLFNForTest = 0x0F

func utf16Units(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		out = append(out, uint16(r))
	}
	return out
}

func buildFAT12ImageWithLFN(t *testing.T) []byte {
	t.Helper()
	const sectorSize = 512
	data := make([]byte, 32*sectorSize)

	data[11], data[12] = 0, 2
	data[13] = 1
	bytesx.PutU16LE(data[14:], 1)
	data[16] = 1
	bytesx.PutU16LE(data[17:], 16)
	bytesx.PutU16LE(data[19:], 32)
	bytesx.PutU16LE(data[22:], 1)
	copy(data[0x36:], "FAT12   ")

	data[512+4] = 0xF0
	data[512+5] = 0xFF

	longName := "LongFilenameExample.txt" // 23 chars, needs two 13-char LFN fragments
	units := utf16Units(longName)

	root := data[1024 : 1024+96]
	// Stored in decreasing sequence order, the real on-disk convention,
	// though parseDirectory sorts by sequence number regardless of order.
	putLFNFragment(root[0:32], 0x40|2, units[13:])
	putLFNFragment(root[32:64], 1, units[0:13])

	short := root[64:96]
	copy(short[0:8], "LONGFI~1")
	copy(short[8:11], "TXT")
	short[11] = 0x20 // archive
	bytesx.PutU16LE(short[26:], 3)
	bytesx.PutU32LE(short[28:], 5)

	copy(data[2048:], "hello")
	return data
}

func TestFAT12LongFilenameAssembly(t *testing.T) {
	data := buildFAT12ImageWithLFN(t)
	stream := sparse.NewReaderAtStream(memReaderAt(data), int64(len(data)))

	fsys, err := fatfs.Mount(stream, vfs.Options{})
	require.NoError(t, err)

	entries, err := fsys.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "LongFilenameExample.txt", entries[0].Name)

	stream2, err := fsys.OpenFile("/LongFilenameExample.txt")
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := stream2.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

type memReaderAt []byte

func (m memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, nil
	}
	return copy(p, m[off:]), nil
}
