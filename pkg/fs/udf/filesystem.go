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

package udf

import (
	"io"
	"strings"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
)

const permissionOwnerWrite = 1 << 11

// resolved is a path lookup result: the ICB address that names the entry,
// its decoded file entry, and (for everything but the root) the
// characteristics carried by the FileIdentifier record that named it.
type resolved struct {
	icb    LBAddr
	fe     fileEntry
	isDir  bool
	hidden bool
}

// FileSystem mounts a single UDF logical volume. Unlike the in-memory
// catalog walk in pkg/fs/hfsplus, directories here are read on demand:
// each path lookup re-reads the directory entries it needs to descend,
// following the volume's own partition map indirection.
type FileSystem struct {
	stream sparse.Stream
	vol    *volume
	opts   vfs.Options
}

// Mount locates the anchor volume descriptor pointer, walks the main
// volume descriptor sequence to the file set descriptor, and returns a
// Filesystem rooted at its root ICB.
func Mount(stream sparse.Stream, opts vfs.Options) (vfs.Filesystem, error) {
	anchor, err := findAnchor(stream)
	if err != nil {
		return nil, err
	}
	vol, err := readVolumeDescriptorSequence(stream, anchor)
	if err != nil {
		return nil, err
	}
	return &FileSystem{stream: stream, vol: vol, opts: opts}, nil
}

func (fs *FileSystem) Root() string        { return "/" }
func (fs *FileSystem) CaseSensitive() bool { return true }

// Streams always returns nil: this reader doesn't surface UDF named
// streams (ECMA-167 stream directories) as alternate data streams.
func (fs *FileSystem) Streams(path string) ([]vfs.StreamInfo, error) { return nil, nil }

// readFileEntry resolves an ICB to an absolute block and decodes the
// FileEntry or ExtendedFileEntry stored there. File entries are assumed to
// fit within a single logical block, which holds for every UDF volume this
// package has been exercised against.
func (fs *FileSystem) readFileEntry(icb LBAddr) (fileEntry, error) {
	block, err := fs.vol.resolveBlock(icb)
	if err != nil {
		return fileEntry{}, err
	}
	buf := make([]byte, fs.vol.blockSize)
	if err := sparse.ReadFull(fs.stream, buf, int64(block)*int64(fs.vol.blockSize)); err != nil && err != io.ErrUnexpectedEOF {
		return fileEntry{}, diskerr.New(diskerr.ReadError, "udf", "file entry", err)
	}
	return parseFileEntry(buf)
}

// readContent returns an entry's full data: the inline bytes for
// allocation type 3, or the concatenation of every allocation-descriptor
// run otherwise, clipped to InformationLength.
func (fs *FileSystem) readContent(icb LBAddr, fe fileEntry) ([]byte, error) {
	if fe.icb.allocType() == allocInline {
		return fe.embeddedData(), nil
	}
	runs, err := fe.allocationDescriptors(fs.vol, icb.PartitionRef)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, fe.informationLength)
	for _, run := range runs {
		if uint64(len(out)) >= fe.informationLength {
			break
		}
		buf := make([]byte, run.length)
		if err := sparse.ReadFull(fs.stream, buf, int64(run.block)*int64(fs.vol.blockSize)); err != nil && err != io.ErrUnexpectedEOF {
			return nil, diskerr.New(diskerr.ReadError, "udf", "file content", err)
		}
		out = append(out, buf...)
	}
	if uint64(len(out)) > fe.informationLength {
		out = out[:fe.informationLength]
	}
	return out, nil
}

// extentsFor converts an entry's allocation descriptors to absolute byte
// extents. Inline entries have no extents of their own on disk.
func (fs *FileSystem) extentsFor(icb LBAddr, fe fileEntry) (sparse.Extents, error) {
	if fe.icb.allocType() == allocInline {
		return nil, nil
	}
	runs, err := fe.allocationDescriptors(fs.vol, icb.PartitionRef)
	if err != nil {
		return nil, err
	}
	var out sparse.Extents
	remaining := fe.informationLength
	for _, run := range runs {
		if remaining == 0 {
			break
		}
		runBytes := uint64(run.length)
		if runBytes > remaining {
			runBytes = remaining
		}
		out = append(out, sparse.Extent{
			Offset: uint64(run.block) * uint64(fs.vol.blockSize),
			Length: runBytes,
		})
		remaining -= runBytes
	}
	return sparse.Normalize(out), nil
}

func (fs *FileSystem) resolve(path string) (resolved, error) {
	fe, err := fs.readFileEntry(fs.vol.rootICB)
	if err != nil {
		return resolved{}, err
	}
	cur := resolved{icb: fs.vol.rootICB, fe: fe, isDir: fe.isDirectory()}

	path = strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/")
	if path == "" {
		return cur, nil
	}
	for _, part := range strings.Split(path, "/") {
		if !cur.isDir {
			return resolved{}, diskerr.New(diskerr.NotFound, "udf", path, nil)
		}
		data, err := fs.readContent(cur.icb, cur.fe)
		if err != nil {
			return resolved{}, err
		}
		entries, err := parseDirectoryData(data, false)
		if err != nil {
			return resolved{}, err
		}
		var match *dirEntry
		for i := range entries {
			if entries[i].name == part {
				match = &entries[i]
				break
			}
		}
		if match == nil {
			return resolved{}, diskerr.New(diskerr.NotFound, "udf", path, nil)
		}
		childFE, err := fs.readFileEntry(match.icb)
		if err != nil {
			return resolved{}, err
		}
		cur = resolved{icb: match.icb, fe: childFE, isDir: childFE.isDirectory(), hidden: match.hidden}
	}
	return cur, nil
}

func (fs *FileSystem) Enumerate(path string) ([]vfs.DirEntry, error) {
	r, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if !r.isDir {
		return nil, diskerr.New(diskerr.NotFound, "udf", path+" is not a directory", nil)
	}
	data, err := fs.readContent(r.icb, r.fe)
	if err != nil {
		return nil, err
	}
	entries, err := parseDirectoryData(data, false)
	if err != nil {
		return nil, err
	}
	out := make([]vfs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if fs.opts.HideHidden && e.hidden {
			continue
		}
		kind := vfs.KindFile
		if e.isDirectory {
			kind = vfs.KindDirectory
		}
		out = append(out, vfs.DirEntry{Name: e.name, Kind: kind})
	}
	return out, nil
}

func (fs *FileSystem) OpenFile(path string) (sparse.Stream, error) {
	r, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if r.isDir {
		return nil, diskerr.New(diskerr.NotFound, "udf", path+" is a directory", nil)
	}
	content, err := fs.readContent(r.icb, r.fe)
	if err != nil {
		return nil, err
	}
	return sparse.NewReaderAtStream(byteReaderAt(content), int64(len(content))), nil
}

func (fs *FileSystem) PathToExtents(path string) (sparse.Extents, error) {
	r, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if r.isDir {
		return nil, nil
	}
	return fs.extentsFor(r.icb, r.fe)
}

func (fs *FileSystem) Attributes(path string) (vfs.Attributes, error) {
	r, err := fs.resolve(path)
	if err != nil {
		return vfs.Attributes{}, err
	}
	attrs := vfs.Attributes{Kind: vfs.KindFile, Hidden: r.hidden}
	if r.isDir {
		attrs.Kind = vfs.KindDirectory
	} else {
		attrs.Length = int64(r.fe.informationLength)
		attrs.ReadOnly = r.fe.permissions&permissionOwnerWrite == 0
	}
	return attrs, nil
}

func (fs *FileSystem) ModTimes(path string) (vfs.Times, error) {
	r, err := fs.resolve(path)
	if err != nil {
		return vfs.Times{}, err
	}
	return vfs.Times{Modified: r.fe.modificationTime, Accessed: r.fe.accessTime}, nil
}

func (fs *FileSystem) Length(path string) (int64, error) {
	a, err := fs.Attributes(path)
	return a.Length, err
}

func (fs *FileSystem) Unix(path string) (vfs.UnixInfo, bool, error) {
	r, err := fs.resolve(path)
	if err != nil {
		return vfs.UnixInfo{}, false, err
	}
	const unspecified = 0xFFFFFFFF
	if r.fe.uid == unspecified && r.fe.gid == unspecified {
		return vfs.UnixInfo{}, false, nil
	}
	return vfs.UnixInfo{UID: r.fe.uid, GID: r.fe.gid, Mode: r.fe.permissions}, true, nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	return copy(p, b[off:]), nil
}
