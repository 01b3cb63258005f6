package ext_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/fs/ext"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
	"github.com/stretchr/testify/require"
)

const blockSize = 1024

// buildImage assembles a minimal, byte-exact ext2 volume: one block group,
// legacy indirect-block inodes (no extents), a root directory with one
// regular file "hello.txt".
func buildImage(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, 8*blockSize)

	sb := data[1024:2048]
	bytesx.PutU32LE(sb[0:], 8)      // inodes_count
	bytesx.PutU32LE(sb[4:], 16)     // blocks_count_lo
	bytesx.PutU32LE(sb[20:], 1)     // first_data_block
	bytesx.PutU32LE(sb[24:], 0)     // log_block_size => 1024
	bytesx.PutU32LE(sb[32:], 8192)  // blocks_per_group
	bytesx.PutU32LE(sb[40:], 8)     // inodes_per_group
	bytesx.PutU16LE(sb[56:], 0xEF53)
	bytesx.PutU32LE(sb[76:], 1) // rev_level (dynamic)
	bytesx.PutU32LE(sb[84:], 11)
	bytesx.PutU16LE(sb[88:], 128)           // inode_size
	bytesx.PutU32LE(sb[96:], 0x0002)        // feature_incompat: FILETYPE

	gd := data[2*blockSize : 2*blockSize+32]
	bytesx.PutU32LE(gd[8:], 4) // inode_table at block 4

	rootInode := data[4*blockSize+128 : 4*blockSize+256]
	bytesx.PutU16LE(rootInode[0:], 0x4000) // dir
	bytesx.PutU32LE(rootInode[4:], 1024)
	bytesx.PutU32LE(rootInode[40:], 5) // block[0] = 5

	fileInode := data[4*blockSize+256 : 4*blockSize+384]
	bytesx.PutU16LE(fileInode[0:], 0x8180) // regular file
	bytesx.PutU32LE(fileInode[4:], 5)      // size_lo
	bytesx.PutU32LE(fileInode[40:], 6)     // block[0] = 6

	dirBlock := data[5*blockSize : 6*blockSize]
	name := "hello.txt"
	bytesx.PutU32LE(dirBlock[0:], 3) // inode 3
	bytesx.PutU16LE(dirBlock[4:], 20)
	dirBlock[6] = byte(len(name))
	dirBlock[7] = 1 // regular file
	copy(dirBlock[8:], name)

	copy(data[6*blockSize:], "hello")

	return data
}

func TestDetectAndMountAndReadFile(t *testing.T) {
	data := buildImage(t)
	stream := sparse.NewReaderAtStream(memReaderAt(data), int64(len(data)))

	require.True(t, ext.Detect(stream))

	fsys, err := ext.Mount(stream, vfs.Options{})
	require.NoError(t, err)

	entries, err := fsys.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name)
	require.Equal(t, vfs.KindFile, entries[0].Kind)

	length, err := fsys.Length("/hello.txt")
	require.NoError(t, err)
	require.EqualValues(t, 5, length)

	content, err := fsys.OpenFile("/hello.txt")
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := content.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestDetectRejectsNonExtImage(t *testing.T) {
	data := make([]byte, 4096)
	stream := sparse.NewReaderAtStream(memReaderAt(data), int64(len(data)))
	require.False(t, ext.Detect(stream))
}

func TestParseSuperblockRejectsBadMagicAndOldRev(t *testing.T) {
	b := make([]byte, 1024)
	_, err := ext.ParseSuperblock(b)
	require.Error(t, err)

	bytesx.PutU16LE(b[56:], 0xEF53)
	_, err = ext.ParseSuperblock(b) // rev_level left 0 => GOOD_OLD_REV
	require.Error(t, err)
}

type memReaderAt []byte

func (m memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, nil
	}
	return copy(p, m[off:]), nil
}
