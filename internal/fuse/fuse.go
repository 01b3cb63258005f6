//go:build linux
// +build linux

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
package fuse

import (
	"context"
	"os"
	"path"
	"sort"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/corehound/diskvfs/pkg/vfs"
)

// VFSRoot adapts a mounted pkg/vfs.Filesystem to bazil.org/fuse: every
// node re-resolves its path against the underlying Filesystem rather than
// caching an in-memory tree, the same on-demand model pkg/fs/udf uses for
// its own directory walks.
type VFSRoot struct {
	fsys vfs.Filesystem
}

func (r *VFSRoot) Root() (fs.Node, error) {
	return &Dir{root: r, path: r.fsys.Root()}, nil
}

// Dir implements both fs.Node and fs.HandleReadDirAller.
type Dir struct {
	root *VFSRoot
	path string
}

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	applyUnix(a, d.root.fsys, d.path)
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	childPath := joinPath(d.path, name)
	attrs, err := d.root.fsys.Attributes(childPath)
	if err != nil {
		return nil, fuse.ENOENT
	}
	if attrs.Kind == vfs.KindDirectory {
		return &Dir{root: d.root, path: childPath}, nil
	}
	return &File{root: d.root, path: childPath, size: attrs.Length}, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := d.root.fsys.Enumerate(d.path)
	if err != nil {
		return nil, err
	}
	dirEntries := make([]fuse.Dirent, len(entries))
	for i, e := range entries {
		typ := fuse.DT_File
		switch e.Kind {
		case vfs.KindDirectory:
			typ = fuse.DT_Dir
		case vfs.KindSymlink:
			typ = fuse.DT_Link
		}
		dirEntries[i] = fuse.Dirent{Inode: uint64(i + 1), Name: e.Name, Type: typ}
	}
	sort.Slice(dirEntries, func(i, j int) bool { return dirEntries[i].Name < dirEntries[j].Name })
	return dirEntries, nil
}

// File implements both fs.Node and fs.HandleReader. Content is read
// through a freshly opened sparse.Stream per request rather than one held
// open for the node's lifetime: every reader's OpenFile is a cheap lookup
// against an already-mounted volume, not a fresh disk scan.
type File struct {
	root *VFSRoot
	path string
	size int64
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = uint64(f.size)
	if times, err := f.root.fsys.ModTimes(f.path); err == nil {
		a.Mtime = times.Modified
		a.Atime = times.Accessed
		a.Ctime = times.Created
	}
	applyUnix(a, f.root.fsys, f.path)
	return nil
}

func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	size := int64(req.Size)
	offset := req.Offset

	if offset >= f.size {
		resp.Data = []byte{}
		return nil
	}
	if offset+size > f.size {
		size = f.size - offset
	}

	stream, err := f.root.fsys.OpenFile(f.path)
	if err != nil {
		return err
	}

	buf := make([]byte, size)
	n, err := stream.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return err
	}
	resp.Data = buf[:n]
	return nil
}

func applyUnix(a *fuse.Attr, fsys vfs.Filesystem, p string) {
	info, ok, err := fsys.Unix(p)
	if err != nil || !ok {
		return
	}
	a.Uid = info.UID
	a.Gid = info.GID
	if info.Mode != 0 {
		a.Mode = (a.Mode &^ 0777) | os.FileMode(info.Mode&0777)
	}
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return path.Join(dir, name)
}
