// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// This test builds a byte-exact UDF volume by hand rather than relying on
// any third-party UDF authoring tool, so it is written as an internal test
// to reuse the package's own tag-checksum and CRC helpers.
package udf

import (
	"testing"
	"time"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
	"github.com/stretchr/testify/require"
)

type memReaderAt []byte

func (m memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m[off:])
	return n, nil
}

// putTag fills a 16-byte descriptor tag and recomputes both its checksum
// and its CRC over the bodyLen bytes that follow, exactly as validateTag
// will recompute them on read.
func putTag(buf []byte, identifier uint16, bodyLen int) {
	bytesx.PutU16LE(buf[0:2], identifier)
	bytesx.PutU16LE(buf[2:4], 2)
	bytesx.PutU16LE(buf[6:8], 0)
	bytesx.PutU16LE(buf[10:12], uint16(bodyLen))
	bytesx.PutU32LE(buf[12:16], 0)
	if bodyLen > 0 {
		bytesx.PutU16LE(buf[8:10], crc16CCITT(buf[16:16+bodyLen]))
	}
	var sum uint8
	for i := 0; i < 16; i++ {
		if i == 4 {
			continue
		}
		sum += buf[i]
	}
	buf[4] = sum
}

func putTimestamp(buf []byte, year, month, day, hour, minute, second int) {
	bytesx.PutU16LE(buf[2:4], uint16(year))
	buf[4] = byte(month)
	buf[5] = byte(day)
	buf[6] = byte(hour)
	buf[7] = byte(minute)
	buf[8] = byte(second)
}

func putLongAD(buf []byte, length uint32, block uint32, partRef uint16) {
	bytesx.PutU32LE(buf[0:4], length)
	bytesx.PutU32LE(buf[4:8], block)
	bytesx.PutU16LE(buf[8:10], partRef)
}

const testSectorSize = 2048

// buildVolume assembles a minimal but byte-exact UDF volume: a volume
// recognition sequence, a 3-sector main volume descriptor sequence
// (partition + logical volume + terminating descriptors), a single
// physical partition starting at block 50 holding a file set descriptor,
// a root directory with one inline FileIdentifier record, and one file
// ("hello.txt") with inline content.
func buildVolume() []byte {
	const totalSectors = 260
	img := make([]byte, totalSectors*testSectorSize)

	sector := func(n int) []byte { return img[n*testSectorSize : (n+1)*testSectorSize] }

	copy(sector(16)[1:6], "BEA01")
	copy(sector(17)[1:6], "NSR02")
	copy(sector(18)[1:6], "TEA01")

	// Partition descriptor: partition 0 starts at physical block 50.
	pd := sector(32)
	bytesx.PutU16LE(pd[22:24], 0) // PartitionNumber
	bytesx.PutU32LE(pd[188:192], 50)
	putTag(pd, tagPartition, 192-16)

	// Logical volume descriptor: 2048-byte blocks, one type-1 partition
	// map, file set descriptor at partition-relative block 0.
	lvd := sector(33)
	bytesx.PutU32LE(lvd[212:216], testSectorSize)
	putLongAD(lvd[248:264], testSectorSize, 0, 0) // LogicalVolumeContentsUse -> FSD
	bytesx.PutU32LE(lvd[264:268], 6)               // MapTableLength
	bytesx.PutU32LE(lvd[268:272], 1)               // NumberOfPartitionMaps
	lvd[440] = partitionMapType1
	lvd[441] = 6
	bytesx.PutU16LE(lvd[444:446], 0) // partition number
	putTag(lvd, tagLogicalVolume, 446-16)

	td := sector(34)
	putTag(td, tagTerminating, 0)

	// File set descriptor at absolute block 50 (partition start + 0):
	// root directory file entry lives at partition-relative block 1.
	fsd := sector(50)
	putLongAD(fsd[400:416], testSectorSize, 1, 0)
	putTag(fsd, tagFileSet, 416-16)

	// Root directory file entry at absolute block 51, with one inline
	// FileIdentifier record naming "hello.txt" (ICB at partition-relative
	// block 2, absolute block 52).
	root := sector(51)
	root[16+11] = icbFileTypeDirectory
	bytesx.PutU16LE(root[34:36], allocInline)
	bytesx.PutU32LE(root[36:40], 501) // uid
	bytesx.PutU32LE(root[40:44], 20)  // gid
	bytesx.PutU32LE(root[44:48], (1<<10)|(1<<11)|(1<<12))
	putTimestamp(root[72:84], 2024, 1, 2, 3, 4, 5)
	putTimestamp(root[84:96], 2024, 1, 2, 3, 4, 6)

	nameBytes := append([]byte{0x08}, []byte("hello.txt")...)
	fidLen := 38 + len(nameBytes)
	fid := root[176 : 176+fidLen]
	fid[18] = 0 // characteristics: plain file
	fid[19] = byte(len(nameBytes))
	putLongAD(fid[20:36], 0, 2, 0)
	bytesx.PutU16LE(fid[36:38], 0)
	copy(fid[38:], nameBytes)
	putTag(fid, tagFileIdentifier, fidLen-16)

	bytesx.PutU64LE(root[56:64], uint64(fidLen)) // InformationLength
	bytesx.PutU32LE(root[168:172], 0)            // ExtAttrLength
	bytesx.PutU32LE(root[172:176], uint32(fidLen))
	putTag(root, tagFile, 176+fidLen-16)

	// hello.txt file entry at absolute block 52, inline content, no
	// owner-write permission bit (read-only).
	file := sector(52)
	file[16+11] = icbFileTypeFile
	bytesx.PutU16LE(file[34:36], allocInline)
	bytesx.PutU32LE(file[36:40], 501)
	bytesx.PutU32LE(file[40:44], 20)
	bytesx.PutU32LE(file[44:48], (1<<10)|(1<<12))
	bytesx.PutU64LE(file[56:64], 6)
	putTimestamp(file[72:84], 2024, 3, 4, 5, 6, 7)
	putTimestamp(file[84:96], 2024, 3, 4, 5, 6, 8)
	bytesx.PutU32LE(file[168:172], 0)
	bytesx.PutU32LE(file[172:176], 6)
	copy(file[176:182], "hello\n")
	putTag(file, tagFile, 176+6-16)

	// Anchor volume descriptor pointer at the conventional sector 256,
	// pointing at the 3-sector main volume descriptor sequence at
	// sector 32.
	avdp := sector(256)[:512]
	bytesx.PutU32LE(avdp[16:20], 3*testSectorSize)
	bytesx.PutU32LE(avdp[20:24], 32)
	putTag(avdp, tagAnchorVolume, 16)

	return img
}

func TestDetectAndMount(t *testing.T) {
	img := buildVolume()
	stream := sparse.NewReaderAtStream(memReaderAt(img), int64(len(img)))

	require.True(t, Detect(stream))

	fsys, err := Mount(stream, vfs.Options{})
	require.NoError(t, err)
	require.Equal(t, "/", fsys.Root())
	require.True(t, fsys.CaseSensitive())

	entries, err := fsys.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name)
	require.Equal(t, vfs.KindFile, entries[0].Kind)

	length, err := fsys.Length("/hello.txt")
	require.NoError(t, err)
	require.EqualValues(t, 6, length)

	stream2, err := fsys.OpenFile("/hello.txt")
	require.NoError(t, err)
	content := make([]byte, 6)
	_, err = stream2.ReadAt(content, 0)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(content))

	attrs, err := fsys.Attributes("/hello.txt")
	require.NoError(t, err)
	require.Equal(t, vfs.KindFile, attrs.Kind)
	require.EqualValues(t, 6, attrs.Length)
	require.True(t, attrs.ReadOnly)

	times, err := fsys.ModTimes("/hello.txt")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 4, 5, 6, 8, 0, time.UTC), times.Modified)
	require.Equal(t, time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC), times.Accessed)

	uid, ok, err := fsys.Unix("/hello.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 501, uid.UID)
	require.EqualValues(t, 20, uid.GID)

	extents, err := fsys.PathToExtents("/hello.txt")
	require.NoError(t, err)
	require.Empty(t, extents) // inline content has no on-disk extents of its own

	_, err = fsys.Enumerate("/missing")
	require.Error(t, err)
}

func TestDetectRejectsNonUDFImage(t *testing.T) {
	img := make([]byte, 64*testSectorSize)
	stream := sparse.NewReaderAtStream(memReaderAt(img), int64(len(img)))
	require.False(t, Detect(stream))

	_, err := Mount(stream, vfs.Options{})
	require.Error(t, err)
}
