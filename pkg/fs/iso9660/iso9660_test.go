package iso9660_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/fs/iso9660"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
	"github.com/stretchr/testify/require"
)

// buildImage assembles a minimal, byte-exact ISO9660 volume: a primary
// volume descriptor at sector 16, a terminator at sector 17, a root
// directory extent at sector 18 holding "." / ".." / "HELLO.TXT;1", and
// the file's content at sector 19.
func buildImage(t *testing.T) []byte {
	t.Helper()
	const sectorSize = iso9660.SectorSize
	data := make([]byte, 20*sectorSize)

	pvd := data[16*sectorSize : 17*sectorSize]
	pvd[0] = 1 // primary
	copy(pvd[1:6], "CD001")
	pvd[6] = 1

	rootRec := pvd[156 : 156+34]
	rootRec[0] = 34
	bytesx.PutU32LE(rootRec[2:], 18)  // extent LBA
	bytesx.PutU32LE(rootRec[10:], 112) // data length
	rootRec[25] = 0x02                 // directory
	rootRec[32] = 1                    // name length
	rootRec[33] = 0x00                 // self

	term := data[17*sectorSize : 18*sectorSize]
	term[0] = 255
	copy(term[1:6], "CD001")

	dir := data[18*sectorSize : 18*sectorSize+112]
	self := dir[0:34]
	self[0] = 34
	bytesx.PutU32LE(self[2:], 18)
	bytesx.PutU32LE(self[10:], 112)
	self[25] = 0x02
	self[32] = 1
	self[33] = 0x00

	parent := dir[34:68]
	parent[0] = 34
	bytesx.PutU32LE(parent[2:], 18)
	bytesx.PutU32LE(parent[10:], 112)
	parent[25] = 0x02
	parent[32] = 1
	parent[33] = 0x01

	file := dir[68:112]
	file[0] = 44
	bytesx.PutU32LE(file[2:], 19)
	bytesx.PutU32LE(file[10:], 5)
	file[25] = 0
	file[32] = 11
	copy(file[33:44], "HELLO.TXT;1")

	copy(data[19*sectorSize:], "hello")

	return data
}

func TestMountEnumerateAndReadKeepsVersionByDefault(t *testing.T) {
	data := buildImage(t)
	stream := sparse.NewReaderAtStream(memReaderAt(data), int64(len(data)))

	require.True(t, iso9660.Detect(stream))

	fsys, err := iso9660.Mount(stream, vfs.Options{})
	require.NoError(t, err)

	entries, err := fsys.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "HELLO.TXT;1", entries[0].Name)

	s, err := fsys.OpenFile("/HELLO.TXT;1")
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := s.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestMountHideVersionsStripsSuffix(t *testing.T) {
	data := buildImage(t)
	stream := sparse.NewReaderAtStream(memReaderAt(data), int64(len(data)))

	fsys, err := iso9660.Mount(stream, vfs.Options{HideVersions: true})
	require.NoError(t, err)

	entries, err := fsys.Enumerate("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "HELLO.TXT", entries[0].Name)

	length, err := fsys.Length("/HELLO.TXT")
	require.NoError(t, err)
	require.EqualValues(t, 5, length)
}

func TestDetectRejectsNonISOImage(t *testing.T) {
	data := make([]byte, 20*iso9660.SectorSize)
	stream := sparse.NewReaderAtStream(memReaderAt(data), int64(len(data)))
	require.False(t, iso9660.Detect(stream))
}

type memReaderAt []byte

func (m memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, nil
	}
	return copy(p, m[off:]), nil
}
