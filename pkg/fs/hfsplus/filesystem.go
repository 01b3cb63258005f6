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

package hfsplus

import (
	"io"
	"strings"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
)

const rootFolderID = uint32(2) // kHFSRootFolderID

// catalogEntry is one node of the in-memory catalog built at mount time:
// either a folder or a file, keyed by its CNID.
type catalogEntry struct {
	cnid   uint32
	parent uint32
	name   string
	isDir  bool
	folder CatalogFolder
	file   CatalogFile
}

// FileSystem mounts a single HFS+ (or HFSX) volume. Like the classic-HFS
// reader this package is modeled on, the whole catalog is parsed into
// memory at mount time rather than walked node-by-node on every lookup.
type FileSystem struct {
	stream   sparse.Stream
	header   VolumeHeader
	overflow *overflowExtents
	byCNID   map[uint32]*catalogEntry
	children map[uint32][]*catalogEntry
	opts     vfs.Options
}

// Detect checks for the "H+" or "HX" signature at byte 1024, per spec.md
// §4.5.
func Detect(stream sparse.Stream) bool {
	buf := make([]byte, 2)
	n, err := stream.ReadAt(buf, volumeHeaderOffset)
	if n != 2 || err != nil {
		return false
	}
	sig := uint16(buf[0])<<8 | uint16(buf[1])
	return sig == SignatureHFSPlus || sig == SignatureHFSX
}

// Mount validates the volume header, parses the catalog and
// extents-overflow B-trees in full, and returns a ready Filesystem.
func Mount(stream sparse.Stream, opts vfs.Options) (vfs.Filesystem, error) {
	hdr := make([]byte, volumeHeaderSize)
	if err := sparse.ReadFull(stream, hdr, volumeHeaderOffset); err != nil && err != io.ErrUnexpectedEOF {
		return nil, diskerr.New(diskerr.ReadError, "hfsplus", "volume header read", err)
	}
	header, err := ParseVolumeHeader(hdr)
	if err != nil {
		return nil, err
	}

	extentsTree, err := readFork(stream, header.BlockSize, 3, header.Extents, nil) // kHFSExtentsFileID
	if err != nil {
		return nil, err
	}
	overflow, err := loadOverflowExtents(extentsTree)
	if err != nil {
		return nil, err
	}

	catalogTree, err := readFork(stream, header.BlockSize, 4, header.Catalog, overflow) // kHFSCatalogFileID
	if err != nil {
		return nil, err
	}
	kvs, err := WalkLeafRecords(catalogTree)
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{
		stream:   stream,
		header:   header,
		overflow: overflow,
		byCNID:   make(map[uint32]*catalogEntry),
		children: make(map[uint32][]*catalogEntry),
		opts:     opts,
	}
	if err := fs.loadCatalog(kvs); err != nil {
		return nil, err
	}
	return fs, nil
}

// loadCatalog classifies every leaf record into the CNID and parent-child
// maps. Thread records are skipped: folder/file records already carry
// both the CNID (in the record) and the name/parent (in the key), so a
// name-based thread lookup is never needed for enumeration or path
// resolution.
func (fs *FileSystem) loadCatalog(kvs []KeyValue) error {
	for _, kv := range kvs {
		key, err := parseCatalogKey(kv.Key)
		if err != nil {
			return err
		}
		if len(kv.Data) < 2 {
			continue
		}
		recordType := int16(kv.Data[0])<<8 | int16(kv.Data[1])
		switch recordType {
		case RecordFolder:
			folder, err := parseCatalogFolder(kv.Data)
			if err != nil {
				return err
			}
			e := &catalogEntry{cnid: folder.FolderID, parent: key.ParentID, name: key.Name, isDir: true, folder: folder}
			fs.byCNID[e.cnid] = e
			fs.children[e.parent] = append(fs.children[e.parent], e)
		case RecordFile:
			file, err := parseCatalogFile(kv.Data)
			if err != nil {
				return err
			}
			e := &catalogEntry{cnid: file.FileID, parent: key.ParentID, name: key.Name, isDir: false, file: file}
			fs.byCNID[e.cnid] = e
			fs.children[e.parent] = append(fs.children[e.parent], e)
		}
	}
	return nil
}

func (fs *FileSystem) Root() string        { return "/" }
func (fs *FileSystem) CaseSensitive() bool { return fs.header.CaseSensitive() }

// Streams always returns nil: this reader doesn't surface HFS+ resource
// forks as named data streams.
func (fs *FileSystem) Streams(path string) ([]vfs.StreamInfo, error) { return nil, nil }

func (fs *FileSystem) resolve(path string) (*catalogEntry, error) {
	path = strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/")
	if path == "" {
		return &catalogEntry{cnid: rootFolderID, isDir: true, name: "/"}, nil
	}
	cur := rootFolderID
	var entry *catalogEntry
	for _, part := range strings.Split(path, "/") {
		var found *catalogEntry
		for _, c := range fs.children[cur] {
			if c.name == part {
				found = c
				break
			}
		}
		if found == nil {
			return nil, diskerr.New(diskerr.NotFound, "hfsplus", path, nil)
		}
		entry = found
		cur = found.cnid
	}
	return entry, nil
}

func (fs *FileSystem) Enumerate(path string) ([]vfs.DirEntry, error) {
	var folderID uint32
	if path == "" || path == "/" {
		folderID = rootFolderID
	} else {
		e, err := fs.resolve(path)
		if err != nil {
			return nil, err
		}
		if !e.isDir {
			return nil, diskerr.New(diskerr.NotFound, "hfsplus", path+" is not a directory", nil)
		}
		folderID = e.cnid
	}
	children := fs.children[folderID]
	out := make([]vfs.DirEntry, 0, len(children))
	for _, c := range children {
		if fs.opts.HideHidden && !c.isDir && c.file.Hidden() {
			continue
		}
		kind := vfs.KindFile
		if c.isDir {
			kind = vfs.KindDirectory
		}
		out = append(out, vfs.DirEntry{Name: c.name, Kind: kind})
	}
	return out, nil
}

func (fs *FileSystem) OpenFile(path string) (sparse.Stream, error) {
	e, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if e.isDir {
		return nil, diskerr.New(diskerr.NotFound, "hfsplus", path+" is a directory", nil)
	}
	content, err := readFork(fs.stream, fs.header.BlockSize, e.file.FileID, e.file.DataFork, fs.overflow)
	if err != nil {
		return nil, err
	}
	return sparse.NewReaderAtStream(byteReaderAt(content), int64(len(content))), nil
}

func (fs *FileSystem) PathToExtents(path string) (sparse.Extents, error) {
	e, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if e.isDir {
		return nil, nil
	}
	return forkByteExtents(fs.header.BlockSize, e.file.FileID, e.file.DataFork, fs.overflow), nil
}

func (fs *FileSystem) Attributes(path string) (vfs.Attributes, error) {
	e, err := fs.resolve(path)
	if err != nil {
		return vfs.Attributes{}, err
	}
	attrs := vfs.Attributes{Kind: vfs.KindFile}
	if e.isDir {
		attrs.Kind = vfs.KindDirectory
	} else {
		attrs.Length = int64(e.file.DataFork.LogicalSize)
		attrs.ReadOnly = e.file.ReadOnly()
		attrs.Hidden = e.file.Hidden()
	}
	return attrs, nil
}

func (fs *FileSystem) ModTimes(path string) (vfs.Times, error) {
	e, err := fs.resolve(path)
	if err != nil {
		return vfs.Times{}, err
	}
	if e.isDir {
		return vfs.Times{
			Created:  e.folder.CreateDate,
			Modified: e.folder.ContentModDate,
			Accessed: e.folder.AccessDate,
		}, nil
	}
	return vfs.Times{
		Created:  e.file.CreateDate,
		Modified: e.file.ContentModDate,
		Accessed: e.file.AccessDate,
	}, nil
}

func (fs *FileSystem) Length(path string) (int64, error) {
	a, err := fs.Attributes(path)
	return a.Length, err
}

func (fs *FileSystem) Unix(path string) (vfs.UnixInfo, bool, error) {
	e, err := fs.resolve(path)
	if err != nil {
		return vfs.UnixInfo{}, false, err
	}
	perm := e.folder.Permissions
	if !e.isDir {
		perm = e.file.Permissions
	}
	if perm.OwnerID == 0 && perm.GroupID == 0 && perm.Mode == 0 {
		return vfs.UnixInfo{}, false, nil
	}
	return vfs.UnixInfo{UID: perm.OwnerID, GID: perm.GroupID, Mode: uint32(perm.Mode)}, true, nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	return copy(p, b[off:]), nil
}
