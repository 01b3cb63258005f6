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

package wimfs

import (
	"strings"
	"time"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
)

// FileSystem mounts image 1 of a WIM archive's metadata, matching how
// wimlib's default image-agnostic mount behaves when no index is given.
type FileSystem struct {
	stream   sparse.Stream
	header   Header
	lookup   LookupTable
	codec    codec
	metadata []byte

	root       DirEntry
	rootOffset uint64
}

// Detect reports whether stream begins with a WIM file header.
func Detect(stream sparse.Stream) bool {
	b := make([]byte, minHeaderSize)
	if err := sparse.ReadFull(stream, b, 0); err != nil {
		return false
	}
	_, err := ParseHeader(b)
	return err == nil
}

// Mount validates the header, decompresses the lookup table and image 1's
// metadata resource, and returns a ready FileSystem.
func Mount(stream sparse.Stream, _ vfs.Options) (vfs.Filesystem, error) {
	hdrBuf := make([]byte, minHeaderSize)
	if err := sparse.ReadFull(stream, hdrBuf, 0); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "wimfs", "header", err)
	}
	header, err := ParseHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	xp, lz := header.Compression()
	c := codecStore
	switch {
	case xp:
		c = codecXpress
	case lz:
		c = codecLZX
	}

	lookupRaw, err := readResource(stream, header.LookupTable, c, header.ChunkSize)
	if err != nil {
		return nil, err
	}
	lookup := ParseLookupTable(lookupRaw)

	metaHeader, ok := lookup.MetadataResource(1)
	if !ok {
		// Some single-image archives carry the metadata resource directly
		// in the header's BootMetadata field rather than flagging a
		// lookup-table entry.
		if header.BootMetadata.OriginalSize == 0 {
			return nil, diskerr.New(diskerr.NotFound, "wimfs", "image 1 metadata resource", nil)
		}
		metaHeader = header.BootMetadata
	}

	metadata, err := readResource(stream, metaHeader, c, header.ChunkSize)
	if err != nil {
		return nil, err
	}

	_, secEnd, err := ParseSecurityBlock(metadata)
	if err != nil {
		return nil, err
	}
	roots, err := ReadDirEntries(metadata[secEnd:])
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, diskerr.New(diskerr.CorruptStructure, "wimfs", "root directory entry", nil)
	}

	fs := &FileSystem{
		stream:     stream,
		header:     header,
		lookup:     lookup,
		codec:      c,
		metadata:   metadata,
		root:       roots[0],
		rootOffset: roots[0].SubdirOffset,
	}
	return fs, nil
}

func (f *FileSystem) Root() string        { return "/" }
func (f *FileSystem) CaseSensitive() bool { return false }

func (f *FileSystem) children(subdirOffset uint64) ([]DirEntry, error) {
	if subdirOffset == 0 || subdirOffset >= uint64(len(f.metadata)) {
		return nil, nil
	}
	return ReadDirEntries(f.metadata[subdirOffset:])
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (f *FileSystem) resolve(path string) (DirEntry, error) {
	parts := splitPath(path)
	cur := f.root
	for _, part := range parts {
		kids, err := f.children(cur.SubdirOffset)
		if err != nil {
			return DirEntry{}, err
		}
		found := false
		for _, k := range kids {
			if strings.EqualFold(k.FileName, part) {
				cur = k
				found = true
				break
			}
		}
		if !found {
			return DirEntry{}, diskerr.New(diskerr.NotFound, "wimfs", path, nil)
		}
	}
	return cur, nil
}

func (f *FileSystem) Enumerate(path string) ([]vfs.DirEntry, error) {
	e, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	if !e.IsDir() {
		return nil, diskerr.New(diskerr.NotFound, "wimfs", path+" is not a directory", nil)
	}
	kids, err := f.children(e.SubdirOffset)
	if err != nil {
		return nil, err
	}
	out := make([]vfs.DirEntry, 0, len(kids))
	for _, k := range kids {
		kind := vfs.KindFile
		switch {
		case k.IsDir():
			kind = vfs.KindDirectory
		case k.IsReparse():
			kind = vfs.KindSymlink
		}
		out = append(out, vfs.DirEntry{Name: k.FileName, Kind: kind, StreamCount: len(k.Streams)})
	}
	return out, nil
}

// Streams resolves each alternate data stream's lookup-table entry to
// report its logical length; a stream whose hash is absent from the
// lookup table (an empty unnamed stream, typically) is skipped.
func (f *FileSystem) Streams(path string) ([]vfs.StreamInfo, error) {
	e, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	var out []vfs.StreamInfo
	for _, s := range e.Streams {
		res, ok := f.resourceForHash(s.Hash)
		if !ok {
			continue
		}
		out = append(out, vfs.StreamInfo{Name: s.Name, Length: int64(res.OriginalSize)})
	}
	return out, nil
}

func (f *FileSystem) resourceForHash(hash [20]byte) (ResourceHeader, bool) {
	if hash == ([20]byte{}) {
		return ResourceHeader{}, false
	}
	entry, ok := f.lookup.ByHash(hash)
	if !ok {
		return ResourceHeader{}, false
	}
	return entry.Resource, true
}

func (f *FileSystem) OpenFile(path string) (sparse.Stream, error) {
	e, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	if e.IsDir() {
		return nil, diskerr.New(diskerr.NotFound, "wimfs", path+" is a directory", nil)
	}
	res, ok := f.resourceForHash(e.Hash)
	if !ok {
		// An all-zero hash (or one absent from the lookup table) means the
		// file's content stream is empty.
		return sparse.NewReaderAtStream(emptyReaderAt{}, 0), nil
	}
	content, err := readResource(f.stream, res, f.codec, f.header.ChunkSize)
	if err != nil {
		return nil, err
	}
	return sparse.NewReaderAtStream(byteReaderAt(content), int64(len(content))), nil
}

func (f *FileSystem) PathToExtents(path string) (sparse.Extents, error) {
	e, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	res, ok := f.resourceForHash(e.Hash)
	if !ok {
		return nil, nil
	}
	return sparse.Extents{{Offset: res.Offset, Length: res.Size}}, nil
}

func (f *FileSystem) Attributes(path string) (vfs.Attributes, error) {
	e, err := f.resolve(path)
	if err != nil {
		return vfs.Attributes{}, err
	}
	kind := vfs.KindFile
	switch {
	case e.IsDir():
		kind = vfs.KindDirectory
	case e.IsReparse():
		kind = vfs.KindSymlink
	}
	length, _ := f.Length(path)
	return vfs.Attributes{
		Kind:     kind,
		Length:   length,
		ReadOnly: e.IsReadOnly(),
		Hidden:   e.IsHidden(),
		System:   e.IsSystem(),
	}, nil
}

// wimFiletimeToTime converts a Windows FILETIME (100ns ticks since
// 1601-01-01) into a time.Time.
func wimFiletimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	const epochDelta = 116444736000000000 // 1601-01-01 to 1970-01-01, in 100ns ticks
	unixNano := (int64(ft) - epochDelta) * 100
	return time.Unix(0, unixNano).UTC()
}

func (f *FileSystem) ModTimes(path string) (vfs.Times, error) {
	e, err := f.resolve(path)
	if err != nil {
		return vfs.Times{}, err
	}
	return vfs.Times{
		Created:  wimFiletimeToTime(e.CreationTime),
		Accessed: wimFiletimeToTime(e.LastAccessTime),
		Modified: wimFiletimeToTime(e.LastWriteTime),
	}, nil
}

func (f *FileSystem) Length(path string) (int64, error) {
	e, err := f.resolve(path)
	if err != nil {
		return 0, err
	}
	res, ok := f.resourceForHash(e.Hash)
	if !ok {
		return 0, nil
	}
	return int64(res.OriginalSize), nil
}

func (f *FileSystem) Unix(path string) (vfs.UnixInfo, bool, error) {
	if _, err := f.resolve(path); err != nil {
		return vfs.UnixInfo{}, false, err
	}
	return vfs.UnixInfo{}, false, nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b)) {
		return 0, diskerr.New(diskerr.ReadError, "wimfs", "content read offset", nil)
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, diskerr.New(diskerr.Truncated, "wimfs", "content read", nil)
	}
	return n, nil
}

type emptyReaderAt struct{}

func (emptyReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return 0, diskerr.New(diskerr.ReadError, "wimfs", "read past end of empty content", nil)
}
