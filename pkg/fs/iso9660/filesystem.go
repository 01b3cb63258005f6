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
package iso9660

import (
	"io"
	"strings"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
)

// FileSystem mounts a single ISO9660 volume, preferring Joliet names when
// the disc carries a Joliet supplementary descriptor.
type FileSystem struct {
	data         []byte
	root         DirRecordHeader
	joliet       bool
	hideVersions bool
}

// Detect checks for "CD001" at byte 32769 (sector 16 + 1), per spec.md §4.5.
func Detect(stream sparse.Stream) bool {
	buf := make([]byte, 5)
	n, err := stream.ReadAt(buf, volDescStartLBA*SectorSize+1)
	return n == 5 && err == nil && string(buf) == "CD001"
}

func Mount(stream sparse.Stream, opts vfs.Options) (vfs.Filesystem, error) {
	size := stream.Size()
	data := make([]byte, size)
	if err := sparse.ReadFull(stream, data, 0); err != nil && err != io.ErrUnexpectedEOF {
		return nil, diskerr.New(diskerr.ReadError, "iso9660", "volume read", err)
	}
	primary, joliet, err := ReadVolumeDescriptors(data)
	if err != nil {
		return nil, err
	}
	desc := primary
	useJoliet := false
	if joliet != nil {
		desc = joliet
		useJoliet = true
	}
	root := parseDirRecordHeader(desc.RootRecord)
	return &FileSystem{data: data, root: root, joliet: useJoliet, hideVersions: opts.HideVersions}, nil
}

func (fs *FileSystem) Root() string        { return "/" }
func (fs *FileSystem) CaseSensitive() bool { return false } // Joliet and plain names alike are matched case-insensitively by resolve

// Streams always returns nil: ISO9660 has no alternate-data-stream concept.
func (fs *FileSystem) Streams(path string) ([]vfs.StreamInfo, error) { return nil, nil }

func (fs *FileSystem) readDir(h DirRecordHeader) []DirEntry {
	start := int64(h.ExtentLBA) * SectorSize
	end := start + int64(h.DataLength)
	if int(end) > len(fs.data) {
		end = int64(len(fs.data))
	}
	if start >= end {
		return nil
	}
	return parseDirectoryRecords(fs.data[start:end], fs.joliet, fs.hideVersions)
}

func (fs *FileSystem) resolve(path string) (DirRecordHeader, bool, error) {
	path = strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/")
	cur := fs.root
	if path == "" {
		return cur, true, nil
	}
	for _, part := range strings.Split(path, "/") {
		entries := fs.readDir(cur)
		var found *DirEntry
		for i := range entries {
			if strings.EqualFold(entries[i].Name, part) {
				found = &entries[i]
				break
			}
		}
		if found == nil {
			return DirRecordHeader{}, false, diskerr.New(diskerr.NotFound, "iso9660", path, nil)
		}
		cur = DirRecordHeader{ExtentLBA: found.ExtentLBA, DataLength: found.DataLength, FileFlags: boolToFlag(found.IsDir)}
	}
	return cur, cur.FileFlags&dirFlagDirectory != 0, nil
}

func boolToFlag(isDir bool) byte {
	if isDir {
		return dirFlagDirectory
	}
	return 0
}

func (fs *FileSystem) Enumerate(path string) ([]vfs.DirEntry, error) {
	h, isDir, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, diskerr.New(diskerr.NotFound, "iso9660", path, nil)
	}
	entries := fs.readDir(h)
	out := make([]vfs.DirEntry, 0, len(entries))
	for _, e := range entries {
		kind := vfs.KindFile
		if e.IsDir {
			kind = vfs.KindDirectory
		}
		out = append(out, vfs.DirEntry{Name: e.Name, Kind: kind})
	}
	return out, nil
}

func (fs *FileSystem) OpenFile(path string) (sparse.Stream, error) {
	h, isDir, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if isDir {
		return nil, diskerr.New(diskerr.CorruptStructure, "iso9660", path, nil)
	}
	base := sparse.NewReaderAtStream(byteReaderAt(fs.data), int64(len(fs.data)))
	return sparse.NewSubStream(base, int64(h.ExtentLBA)*SectorSize, int64(h.DataLength))
}

func (fs *FileSystem) PathToExtents(path string) (sparse.Extents, error) {
	h, isDir, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if isDir {
		return nil, diskerr.New(diskerr.CorruptStructure, "iso9660", path, nil)
	}
	return sparse.Extents{{Offset: uint64(h.ExtentLBA) * SectorSize, Length: uint64(h.DataLength)}}, nil
}

func (fs *FileSystem) Attributes(path string) (vfs.Attributes, error) {
	h, isDir, err := fs.resolve(path)
	if err != nil {
		return vfs.Attributes{}, err
	}
	kind := vfs.KindFile
	if isDir {
		kind = vfs.KindDirectory
	}
	return vfs.Attributes{Kind: kind, Length: int64(h.DataLength)}, nil
}

func (fs *FileSystem) ModTimes(path string) (vfs.Times, error) { return vfs.Times{}, nil }

func (fs *FileSystem) Length(path string) (int64, error) {
	a, err := fs.Attributes(path)
	return a.Length, err
}

func (fs *FileSystem) Unix(path string) (vfs.UnixInfo, bool, error) {
	return vfs.UnixInfo{}, false, nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	return copy(p, b[off:]), nil
}
