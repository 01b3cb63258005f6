package wimfs_test

import (
	"crypto/sha1"
	"testing"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/fs/wimfs"
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

// buildStoreImage assembles a single-image, uncompressed ("STORE") WIM
// archive by hand: a header, a two-entry lookup table (one METADATA
// resource, one content resource), a metadata resource holding an empty
// security block and a two-entry directory tree (root -> hello.txt), and
// the file content itself.
func buildStoreImage(t *testing.T) []byte {
	t.Helper()

	content := []byte("hello")
	hash := sha1.Sum(content)
	name := asciiUTF16LE("hello.txt")

	// --- metadata resource ---
	security := make([]byte, 8) // totalLength=8, count=0
	bytesx.PutU32LE(security[0:4], 8)
	bytesx.PutU32LE(security[4:8], 0)

	const rootLen = 106 + 2 + 2
	root := make([]byte, rootLen)
	bytesx.PutU64LE(root[0:8], rootLen)
	bytesx.PutU32LE(root[8:12], 0x10) // FILE_ATTRIBUTE_DIRECTORY
	// security_index stays 0; subdir_offset is filled in below once offsets are known.

	fileEntryLen := 106 + len(name) + 2 + 2
	fileEntry := make([]byte, fileEntryLen)
	bytesx.PutU64LE(fileEntry[0:8], uint64(fileEntryLen))
	bytesx.PutU32LE(fileEntry[8:12], 0) // plain file
	copy(fileEntry[64:84], hash[:])
	bytesx.PutU16LE(fileEntry[100:102], 0)               // stream_count
	bytesx.PutU16LE(fileEntry[102:104], 0)                // short_name_length
	bytesx.PutU16LE(fileEntry[104:106], uint16(len(name))) // filename_length
	copy(fileEntry[106:106+len(name)], name)
	// trailing 2-byte NUL for filename, 2-byte NUL for short name are
	// already zero from make().

	rootSubdirOffset := uint64(len(security) + len(root))
	bytesx.PutU64LE(root[16:24], rootSubdirOffset)

	metadata := append(append(append([]byte{}, security...), root...), fileEntry...)

	// --- lookup table ---
	lookup := make([]byte, 100)
	// entry 0: metadata resource, offset patched once the file layout is final.
	bytesx.PutU32LE(lookup[26:30], 1) // ref_count
	// entry 1: content resource for hello.txt.
	lookup1 := lookup[50:100]
	bytesx.PutU64LE(lookup1[8:16], 0)      // offset placeholder
	bytesx.PutU32LE(lookup1[26:30], 1)     // ref_count
	copy(lookup1[30:50], hash[:])

	const headerSize = 148
	const lookupOffset = headerSize
	metaOffset := lookupOffset + len(lookup)
	contentOffset := metaOffset + len(metadata)

	// Patch resource headers now that offsets are known.
	putResourceHeader(lookup[0:24], uint64(len(metadata)), 0x02, uint64(metaOffset), uint64(len(metadata)))
	putResourceHeader(lookup[50:74], uint64(len(content)), 0x00, uint64(contentOffset), uint64(len(content)))

	header := make([]byte, headerSize)
	copy(header[0:8], "MSWIM\x00\x00\x00")
	bytesx.PutU32LE(header[8:12], headerSize)
	bytesx.PutU32LE(header[20:24], 32*1024) // chunk size
	bytesx.PutU16LE(header[40:42], 1)       // part number
	bytesx.PutU16LE(header[42:44], 1)       // total parts
	bytesx.PutU32LE(header[44:48], 1)       // image count
	putResourceHeader(header[48:72], uint64(len(lookup)), 0x00, uint64(lookupOffset), uint64(len(lookup)))

	img := append(append(append([]byte{}, header...), lookup...), metadata...)
	img = append(img, content...)
	require.Equal(t, contentOffset, metaOffset+len(metadata))
	require.Equal(t, contentOffset+len(content), len(img))
	return img
}

func putResourceHeader(b []byte, size uint64, flags uint8, offset, originalSize uint64) {
	packed := size | uint64(flags)<<56
	bytesx.PutU64LE(b[0:8], packed)
	bytesx.PutU64LE(b[8:16], offset)
	bytesx.PutU64LE(b[16:24], originalSize)
}

func TestMountEnumerateAndRead(t *testing.T) {
	img := buildStoreImage(t)
	stream := sparse.NewReaderAtStream(memReaderAt(img), int64(len(img)))

	require.True(t, wimfs.Detect(stream))

	fs, err := wimfs.Mount(stream, vfs.Options{})
	require.NoError(t, err)

	entries, err := fs.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hello.txt", entries[0].Name)
	require.Equal(t, vfs.KindFile, entries[0].Kind)

	length, err := fs.Length("hello.txt")
	require.NoError(t, err)
	require.EqualValues(t, 5, length)

	stream2, err := fs.OpenFile("hello.txt")
	require.NoError(t, err)
	buf := make([]byte, 5)
	require.NoError(t, sparse.ReadFull(stream2, buf, 0))
	require.Equal(t, "hello", string(buf))
}

func TestDetectRejectsNonWIMImage(t *testing.T) {
	img := make([]byte, 256)
	stream := sparse.NewReaderAtStream(memReaderAt(img), int64(len(img)))
	require.False(t, wimfs.Detect(stream))
}
