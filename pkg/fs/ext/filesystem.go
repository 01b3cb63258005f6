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
package ext

import (
	"io"
	"strings"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
)

// Diagnostic mirrors the non-fatal warnings a mount can surface without
// failing outright (spec.md §9's ext NeedsRecovery open question).
type Diagnostic struct {
	Kind    string
	Message string
}

// FileSystem mounts a single ext2/3/4 volume.
type FileSystem struct {
	stream      sparse.Stream
	data        []byte
	sb          *Superblock
	gdt         []GroupDescriptor
	Diagnostics []Diagnostic
}

// Detect performs spec.md §4.5's cheap signature check: the superblock
// magic at byte 1080 (1024 + 56), with no other structural validation.
func Detect(stream sparse.Stream) bool {
	buf := make([]byte, 2)
	n, err := stream.ReadAt(buf, superblockOffset+56)
	return n == 2 && err == nil && buf[0] == 0x53 && buf[1] == 0xEF
}

// Mount validates the superblock and group-descriptor table and returns a
// ready-to-use FileSystem. The whole volume is read into memory up front;
// ext images in this module's scope are expected to fit (callers working
// with larger images should wrap Mount behind their own paging strategy).
func Mount(stream sparse.Stream, opts vfs.Options) (vfs.Filesystem, error) {
	size := stream.Size()
	data := make([]byte, size)
	if err := sparse.ReadFull(stream, data, 0); err != nil && err != io.ErrUnexpectedEOF {
		return nil, diskerr.New(diskerr.ReadError, "ext", "volume read", err)
	}
	if len(data) < superblockOffset+superblockSize {
		return nil, diskerr.New(diskerr.Truncated, "ext", "volume too small for superblock", nil)
	}
	sb, err := ParseSuperblock(data[superblockOffset:])
	if err != nil {
		return nil, err
	}
	gdt := groupDescriptorTable(data, sb)

	fs := &FileSystem{stream: stream, data: data, sb: sb, gdt: gdt}
	if sb.NeedsRecovery() {
		fs.Diagnostics = append(fs.Diagnostics, Diagnostic{
			Kind:    "NeedsRecovery",
			Message: "journal not replayed; content correct only if cleanly unmounted",
		})
	}
	return fs, nil
}

// byteSliceReaderAt adapts a string's bytes to io.ReaderAt for the fast
// symlink case, where the target text lives inline in the inode rather
// than in any data block.
type byteSliceReaderAt string

func (b byteSliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	return copy(p, b[off:]), nil
}

func (fs *FileSystem) Root() string        { return "/" }
func (fs *FileSystem) CaseSensitive() bool { return true }

// Streams always returns nil: ext has no alternate-data-stream concept.
func (fs *FileSystem) Streams(path string) ([]vfs.StreamInfo, error) { return nil, nil }

func (fs *FileSystem) resolve(path string) (uint32, *Inode, error) {
	path = strings.Trim(path, "/")
	ino := uint32(RootInode)
	in, err := readInode(fs.data, fs.sb, fs.gdt, ino)
	if err != nil {
		return 0, nil, err
	}
	if path == "" {
		return ino, in, nil
	}
	for _, part := range strings.Split(path, "/") {
		if !in.IsDir() {
			return 0, nil, diskerr.New(diskerr.NotFound, "ext", path, nil)
		}
		recs, err := fs.readDir(in)
		if err != nil {
			return 0, nil, err
		}
		found := false
		for _, r := range recs {
			if r.Name == part {
				ino = r.Inode
				in, err = readInode(fs.data, fs.sb, fs.gdt, ino)
				if err != nil {
					return 0, nil, err
				}
				found = true
				break
			}
		}
		if !found {
			return 0, nil, diskerr.New(diskerr.NotFound, "ext", path, nil)
		}
	}
	return ino, in, nil
}

func (fs *FileSystem) blockRuns(in *Inode) ([]blockRun, error) {
	if in.UsesExtents() {
		return resolveExtents(fs.data, fs.sb, in.Block[:])
	}
	return resolveIndirect(fs.data, fs.sb, in), nil
}

func (fs *FileSystem) readDir(in *Inode) ([]DirRecord, error) {
	runs, err := fs.blockRuns(in)
	if err != nil {
		return nil, err
	}
	var out []DirRecord
	for _, r := range runs {
		for b := uint64(0); b < uint64(r.count); b++ {
			off := (r.physical + b) * uint64(fs.sb.BlockSize())
			if int(off)+int(fs.sb.BlockSize()) > len(fs.data) {
				continue
			}
			block := fs.data[off : off+uint64(fs.sb.BlockSize())]
			out = append(out, parseDirBlock(block, fs.sb.HasFileType())...)
		}
	}
	return out, nil
}

func (fs *FileSystem) OpenFile(path string) (sparse.Stream, error) {
	_, in, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if in.IsDir() {
		return nil, diskerr.New(diskerr.CorruptStructure, "ext", path, nil)
	}
	if in.IsLink() && in.BlocksCount == 0 {
		ino, _, _ := fs.resolve(path)
		target := fastSymlinkTarget(rawInodeBytes(fs.data, fs.sb, fs.gdt, ino), in.Size())
		return sparse.NewReaderAtStream(byteSliceReaderAt(target), int64(len(target))), nil
	}
	runs, err := fs.blockRuns(in)
	if err != nil {
		return nil, err
	}
	ext := contentExtents(fs.sb, runs, in.Size())
	return &sparseInodeStream{fs: fs, size: in.Size(), extents: ext}, nil
}

// rawInodeBytes re-reads an inode's raw on-disk bytes, needed only for the
// fast-symlink path where the target text lives past the struct fields this
// reader otherwise decodes.
func rawInodeBytes(data []byte, sb *Superblock, gdt []GroupDescriptor, ino uint32) []byte {
	if ino == 0 {
		return nil
	}
	group := (ino - 1) / sb.InodesPerGroup
	index := (ino - 1) % sb.InodesPerGroup
	if int(group) >= len(gdt) {
		return nil
	}
	off := int64(gdt[group].InodeTable())*sb.BlockSize() + int64(index)*int64(sb.InodeSize)
	if int(off)+int(sb.InodeSize) > len(data) {
		return nil
	}
	return data[off : int64(off)+int64(sb.InodeSize)]
}

func (fs *FileSystem) Enumerate(path string) ([]vfs.DirEntry, error) {
	_, in, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if !in.IsDir() {
		return nil, diskerr.New(diskerr.NotFound, "ext", path, nil)
	}
	recs, err := fs.readDir(in)
	if err != nil {
		return nil, err
	}
	out := make([]vfs.DirEntry, 0, len(recs))
	for _, r := range recs {
		isDir := r.IsDir
		if !fs.sb.HasFileType() {
			if child, err := readInode(fs.data, fs.sb, fs.gdt, r.Inode); err == nil {
				isDir = child.IsDir()
			}
		}
		kind := vfs.KindFile
		if isDir {
			kind = vfs.KindDirectory
		}
		out = append(out, vfs.DirEntry{Name: r.Name, Kind: kind})
	}
	return out, nil
}

func (fs *FileSystem) PathToExtents(path string) (sparse.Extents, error) {
	_, in, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	runs, err := fs.blockRuns(in)
	if err != nil {
		return nil, err
	}
	return contentExtents(fs.sb, runs, in.Size()), nil
}

func (fs *FileSystem) Attributes(path string) (vfs.Attributes, error) {
	_, in, err := fs.resolve(path)
	if err != nil {
		return vfs.Attributes{}, err
	}
	kind := vfs.KindFile
	if in.IsDir() {
		kind = vfs.KindDirectory
	} else if in.IsLink() {
		kind = vfs.KindSymlink
	}
	return vfs.Attributes{Kind: kind, Length: in.Size()}, nil
}

func (fs *FileSystem) ModTimes(path string) (vfs.Times, error) { return vfs.Times{}, nil }

func (fs *FileSystem) Length(path string) (int64, error) {
	_, in, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	return in.Size(), nil
}

func (fs *FileSystem) Unix(path string) (vfs.UnixInfo, bool, error) {
	return vfs.UnixInfo{}, false, nil
}

// sparseInodeStream presents an inode's extents as a sparse.Stream reading
// through the mounted volume's backing data.
type sparseInodeStream struct {
	fs      *FileSystem
	size    int64
	extents sparse.Extents
}

func (s *sparseInodeStream) Size() int64 { return s.size }

// ReadAt serves bytes out of the mounted volume's backing data, mapping
// each logical byte in [off, off+len(p)) to its physical block through the
// extent list contentExtents recorded (runs are walked in ascending
// logical order, so position within the concatenated extents equals
// logical file offset). Gaps past the declared size read as EOF.
func (s *sparseInodeStream) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	end := off + int64(len(p))
	if end > s.size {
		end = s.size
	}
	n := int(end - off)

	written := 0
	for written < n {
		logical := off + int64(written)
		physOff, runLen := s.physicalRun(logical)
		if runLen == 0 {
			break
		}
		chunk := int64(n - written)
		if chunk > runLen {
			chunk = runLen
		}
		copy(p[written:written+int(chunk)], s.fs.data[physOff:physOff+chunk])
		written += int(chunk)
	}
	for i := written; i < n; i++ {
		p[i] = 0
	}
	return n, nil
}

// physicalRun returns the physical byte offset backing logical, plus how
// many further contiguous bytes that same run covers.
func (s *sparseInodeStream) physicalRun(logical int64) (int64, int64) {
	remaining := uint64(logical)
	for _, e := range s.extents {
		if remaining < e.Length {
			return int64(e.Offset) + int64(remaining), int64(e.Length - remaining)
		}
		remaining -= e.Length
	}
	return 0, 0
}

func (s *sparseInodeStream) Extents(offset, length int64) (sparse.Extents, error) {
	return sparse.Extents{{Offset: uint64(offset), Length: uint64(length)}}, nil
}
