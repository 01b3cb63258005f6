package hfsplus_test

import (
	"testing"
	"time"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/fs/hfsplus"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
	"github.com/stretchr/testify/require"
)

const blockSize = 512

// utf16be encodes an ASCII string as UTF-16BE bytes (no terminator).
func utf16be(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, c := range s {
		out = append(out, 0, byte(c))
	}
	return out
}

func putExtent(b []byte, off int, startBlock, blockCount uint32) {
	bytesx.PutU32BE(b[off:off+4], startBlock)
	bytesx.PutU32BE(b[off+4:off+8], blockCount)
}

func forkDataBytes(logicalSize uint64, totalBlocks uint32, startBlock, runBlocks uint32) []byte {
	b := make([]byte, 80)
	bytesx.PutU64BE(b[0:8], logicalSize)
	bytesx.PutU32BE(b[12:16], totalBlocks)
	if runBlocks > 0 {
		putExtent(b, 16, startBlock, runBlocks)
	}
	return b
}

// btreeHeaderNode builds a single 512-byte B-tree header node (node 0)
// declaring the leaf-list bounds and node size used by the rest of the tree.
func btreeHeaderNode(firstLeaf, lastLeaf, leafRecords, nodeSize uint32) []byte {
	node := make([]byte, blockSize)
	// node descriptor
	bytesx.PutU32BE(node[0:4], 0) // fLink
	bytesx.PutU32BE(node[4:8], 0) // bLink
	node[8] = 1                  // kind: header
	node[9] = 0                  // height
	bytesx.PutU16BE(node[10:12], 1) // numRecords

	rec := make([]byte, 32)
	bytesx.PutU32BE(rec[4:8], 1)           // rootNode (unused by reader)
	bytesx.PutU32BE(rec[8:12], leafRecords)
	bytesx.PutU32BE(rec[12:16], firstLeaf)
	bytesx.PutU32BE(rec[16:20], lastLeaf)
	bytesx.PutU16BE(rec[20:22], uint16(nodeSize))
	copy(node[14:14+len(rec)], rec)

	recordEnd := 14 + len(rec)
	bytesx.PutU16BE(node[blockSize-2:blockSize], uint16(14))        // offsets[0]: record start
	bytesx.PutU16BE(node[blockSize-4:blockSize-2], uint16(recordEnd)) // offsets[1]: free space start
	return node
}

// catalogFileRecord builds a 248-byte HFSPlusCatalogFile record for a file
// with a single-extent data fork and no resource fork.
func catalogFileRecord(fileID uint32, create, modify, access uint32, ownerID, groupID uint32, mode uint16, dataSize uint64, dataStartBlock uint32) []byte {
	b := make([]byte, 248)
	bytesx.PutU16BE(b[0:2], uint16(hfsplus.RecordFile))
	bytesx.PutU32BE(b[8:12], fileID)
	bytesx.PutU32BE(b[12:16], create)
	bytesx.PutU32BE(b[16:20], modify)
	bytesx.PutU32BE(b[24:28], access)
	bytesx.PutU32BE(b[32:36], ownerID)
	bytesx.PutU32BE(b[36:40], groupID)
	bytesx.PutU16BE(b[42:44], mode)
	copy(b[88:168], forkDataBytes(dataSize, 1, dataStartBlock, 1))
	return b
}

// catalogLeafNode builds a single 512-byte B-tree leaf node holding one
// catalog record keyed by (parentID, name).
func catalogLeafNode(parentID uint32, name string, data []byte) []byte {
	node := make([]byte, blockSize)
	bytesx.PutU32BE(node[0:4], 0) // fLink: last leaf
	bytesx.PutU32BE(node[4:8], 0) // bLink
	node[8] = 0xFF                // kind: leaf (-1)
	node[9] = 1                   // height
	bytesx.PutU16BE(node[10:12], 1)

	nameBytes := utf16be(name)
	key := make([]byte, 6+len(nameBytes))
	bytesx.PutU32BE(key[0:4], parentID)
	bytesx.PutU16BE(key[4:6], uint16(len(name)))
	copy(key[6:], nameBytes)

	rec := make([]byte, 0, 2+len(key)+len(data))
	lenPrefix := make([]byte, 2)
	bytesx.PutU16BE(lenPrefix, uint16(len(key)))
	rec = append(rec, lenPrefix...)
	rec = append(rec, key...)
	if len(rec)%2 != 0 {
		rec = append(rec, 0)
	}
	rec = append(rec, data...)

	copy(node[14:14+len(rec)], rec)
	recordEnd := 14 + len(rec)
	bytesx.PutU16BE(node[blockSize-2:blockSize], uint16(14))
	bytesx.PutU16BE(node[blockSize-4:blockSize-2], uint16(recordEnd))
	return node
}

// buildVolume assembles a minimal HFS+ image: blocks 0-1 boot blocks, block 2
// the volume header, blocks 3-4 the catalog B-tree (header + one leaf node
// naming "hello.txt"), block 5 an empty extents-overflow B-tree, block 6 the
// file's data fork.
func buildVolume() []byte {
	const (
		fileID  = uint32(16)
		created = uint32(3000000000)
		modded  = uint32(3000000100)
		touched = uint32(3000000200)
	)

	vol := make([]byte, 8*blockSize)

	catalog := append(
		btreeHeaderNode(1, 1, 1, blockSize),
		catalogLeafNode(2, "hello.txt", catalogFileRecord(fileID, created, modded, touched, 501, 20, 0o100644, 6, 6))...,
	)
	copy(vol[3*blockSize:3*blockSize+len(catalog)], catalog)

	extentsOverflow := btreeHeaderNode(0, 0, 0, blockSize)
	copy(vol[5*blockSize:5*blockSize+len(extentsOverflow)], extentsOverflow)

	copy(vol[6*blockSize:], []byte("hello\n"))

	header := make([]byte, 512)
	bytesx.PutU16BE(header[0:2], hfsplus.SignatureHFSPlus)
	bytesx.PutU16BE(header[2:4], 4)
	bytesx.PutU32BE(header[40:44], blockSize)
	bytesx.PutU32BE(header[44:48], 8)
	bytesx.PutU32BE(header[64:68], 17)
	copy(header[192:272], forkDataBytes(blockSize, 1, 5, 1))
	copy(header[272:352], forkDataBytes(uint64(len(catalog)), 2, 3, 2))
	copy(vol[1024:1536], header)

	return vol
}

type memReaderAt []byte

func (m memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m[off:])
	return n, nil
}

func TestDetectAndMount(t *testing.T) {
	vol := buildVolume()
	stream := sparse.NewReaderAtStream(memReaderAt(vol), int64(len(vol)))

	require.True(t, hfsplus.Detect(stream))

	fs, err := hfsplus.Mount(stream, vfs.Options{})
	require.NoError(t, err)
	require.Equal(t, "/", fs.Root())
	require.True(t, fs.CaseSensitive())

	entries, err := fs.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name)
	require.Equal(t, vfs.KindFile, entries[0].Kind)

	length, err := fs.Length("/hello.txt")
	require.NoError(t, err)
	require.EqualValues(t, 6, length)

	rc, err := fs.OpenFile("/hello.txt")
	require.NoError(t, err)
	buf := make([]byte, rc.Size())
	require.NoError(t, sparse.ReadFull(rc, buf, 0))
	require.Equal(t, "hello\n", string(buf))

	attrs, err := fs.Attributes("/hello.txt")
	require.NoError(t, err)
	require.Equal(t, vfs.KindFile, attrs.Kind)
	require.EqualValues(t, 6, attrs.Length)

	times, err := fs.ModTimes("/hello.txt")
	require.NoError(t, err)
	require.Equal(t, time.Unix(3000000000-2082844800, 0).UTC(), times.Created)
	require.Equal(t, time.Unix(3000000100-2082844800, 0).UTC(), times.Modified)
	require.Equal(t, time.Unix(3000000200-2082844800, 0).UTC(), times.Accessed)

	unix, ok, err := fs.Unix("/hello.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 501, unix.UID)
	require.EqualValues(t, 20, unix.GID)
	require.EqualValues(t, 0o100644, unix.Mode)

	extents, err := fs.PathToExtents("/hello.txt")
	require.NoError(t, err)
	require.Len(t, extents, 1)
	require.EqualValues(t, 6*blockSize, extents[0].Offset)
	require.EqualValues(t, 6, extents[0].Length)

	_, err = fs.Enumerate("/missing")
	require.Error(t, err)
}

func TestDetectRejectsNonHFSPlusImage(t *testing.T) {
	vol := make([]byte, 4096)
	stream := sparse.NewReaderAtStream(memReaderAt(vol), int64(len(vol)))
	require.False(t, hfsplus.Detect(stream))

	_, err := hfsplus.Mount(stream, vfs.Options{})
	require.Error(t, err)
}
