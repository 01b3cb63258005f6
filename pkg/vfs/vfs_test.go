package vfs_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
	"github.com/stretchr/testify/require"
)

// fakeFS is a minimal in-memory Filesystem used only to exercise the facade.
type fakeFS struct {
	dirs  map[string][]vfs.DirEntry
	files map[string][]byte
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		dirs: map[string][]vfs.DirEntry{
			"/": {
				{Name: "docs", Kind: vfs.KindDirectory},
				{Name: "readme.txt", Kind: vfs.KindFile},
			},
			"/docs": {
				{Name: "a.txt", Kind: vfs.KindFile},
				{Name: "b.bin", Kind: vfs.KindFile},
			},
		},
		files: map[string][]byte{
			"/readme.txt": []byte("hello"),
			"/docs/a.txt": []byte("aaa"),
			"/docs/b.bin": []byte("bb"),
		},
	}
}

func (f *fakeFS) Root() string { return "/" }

func (f *fakeFS) OpenFile(path string) (sparse.Stream, error) {
	b, ok := f.files[path]
	if !ok {
		return nil, diskerr.New(diskerr.NotFound, "fake", path, nil)
	}
	return sparse.NewReaderAtStream(memReader(b), int64(len(b))), nil
}

func (f *fakeFS) Enumerate(path string) ([]vfs.DirEntry, error) {
	e, ok := f.dirs[path]
	if !ok {
		return nil, diskerr.New(diskerr.NotFound, "fake", path, nil)
	}
	return e, nil
}

func (f *fakeFS) PathToExtents(path string) (sparse.Extents, error) {
	b, ok := f.files[path]
	if !ok {
		return nil, diskerr.New(diskerr.NotFound, "fake", path, nil)
	}
	return sparse.Extents{{Offset: 0, Length: uint64(len(b))}}, nil
}

func (f *fakeFS) Attributes(path string) (vfs.Attributes, error) {
	if _, ok := f.dirs[path]; ok {
		return vfs.Attributes{Kind: vfs.KindDirectory}, nil
	}
	if b, ok := f.files[path]; ok {
		return vfs.Attributes{Kind: vfs.KindFile, Length: int64(len(b))}, nil
	}
	return vfs.Attributes{}, diskerr.New(diskerr.NotFound, "fake", path, nil)
}

func (f *fakeFS) ModTimes(path string) (vfs.Times, error) { return vfs.Times{}, nil }

func (f *fakeFS) Length(path string) (int64, error) {
	a, err := f.Attributes(path)
	return a.Length, err
}

func (f *fakeFS) Unix(path string) (vfs.UnixInfo, bool, error) { return vfs.UnixInfo{}, false, nil }

func (f *fakeFS) CaseSensitive() bool { return false }

func (f *fakeFS) Streams(path string) ([]vfs.StreamInfo, error) { return nil, nil }

type memReader []byte

func (m memReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, nil
	}
	return copy(p, m[off:]), nil
}

func TestDirectoryExistsAndFileExists(t *testing.T) {
	m := vfs.Mount(newFakeFS(), "fake")
	require.True(t, m.DirectoryExists("/docs"))
	require.True(t, m.FileExists("/readme.txt"))
	require.False(t, m.FileExists("/docs"))
	require.False(t, m.DirectoryExists("/nope"))
}

func entryNames(entries []vfs.DirEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestEnumerateNonRecursiveWithPattern(t *testing.T) {
	m := vfs.Mount(newFakeFS(), "fake")
	entries, err := m.Enumerate("/docs", "*.txt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, entryNames(entries))
	require.EqualValues(t, 3, entries[0].Length) // enriched via Attributes, not just the bare reader listing
}

func TestEnumerateRecursiveDescendsDirectories(t *testing.T) {
	m := vfs.Mount(newFakeFS(), "fake")
	entries, err := m.Enumerate("/", "*", true)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"docs", "readme.txt", "docs/a.txt", "docs/b.bin"}, entryNames(entries))
}

func TestOpenReadOnlySucceedsWriteFails(t *testing.T) {
	m := vfs.Mount(newFakeFS(), "fake")
	s, err := m.Open("/readme.txt", vfs.Open, vfs.Read)
	require.NoError(t, err)
	require.EqualValues(t, 5, s.Size())

	_, err = m.Open("/readme.txt", vfs.Open, vfs.Write)
	require.Error(t, err)
	require.ErrorIs(t, err, diskerr.AsSentinel(diskerr.NotWritable))
}

func TestBackslashAndCaseNormalization(t *testing.T) {
	m := vfs.Mount(newFakeFS(), "fake")
	require.True(t, m.FileExists(`\DOCS\A.TXT`))
}
