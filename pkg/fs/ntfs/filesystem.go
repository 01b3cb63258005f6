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

package ntfs

import (
	"strings"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
)

const (
	rootDirRecord    = 5
	indexAttrName    = "$I30"
	namespaceDOSOnly = 2
)

// FileSystem mounts a single NTFS volume.
type FileSystem struct {
	stream      sparse.Stream
	boot        BootSector
	mftBytes    []byte
	opts        vfs.Options
	clusterSize int64
	recordSize  int64
}

// Detect checks the boot sector's OEM ID.
func Detect(stream sparse.Stream) bool {
	buf := make([]byte, 512)
	if err := sparse.ReadFull(stream, buf, 0); err != nil {
		return false
	}
	_, err := ParseBootSector(buf)
	return err == nil
}

// Mount parses the boot sector, bootstraps $MFT from its own record 0, and
// reads the whole Master File Table into memory.
func Mount(stream sparse.Stream, opts vfs.Options) (vfs.Filesystem, error) {
	bootBuf := make([]byte, 512)
	if err := sparse.ReadFull(stream, bootBuf, 0); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "ntfs", "boot sector", err)
	}
	boot, err := ParseBootSector(bootBuf)
	if err != nil {
		return nil, err
	}
	clusterSize := boot.ClusterSize()
	recordSize := boot.MFTRecordSize()

	record0Raw := make([]byte, recordSize)
	if err := sparse.ReadFull(stream, record0Raw, boot.MFTLCN*uint64(clusterSize)); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "ntfs", "$MFT record 0", err)
	}
	record0, err := ParseMFTRecord(record0Raw)
	if err != nil {
		return nil, err
	}
	mftData, ok := record0.Find(AttrData, "")
	if !ok {
		return nil, diskerr.New(diskerr.CorruptStructure, "ntfs", "$MFT has no DATA attribute", nil)
	}
	mftBytes, err := readContent(stream, clusterSize, mftData)
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{
		stream:      stream,
		boot:        boot,
		mftBytes:    mftBytes,
		opts:        opts,
		clusterSize: clusterSize,
		recordSize:  recordSize,
	}
	if _, err := fs.readRecord(rootDirRecord); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileSystem) Root() string        { return "/" }
func (fs *FileSystem) CaseSensitive() bool { return false }

func (fs *FileSystem) readRecord(n uint32) (MFTRecord, error) {
	start := int64(n) * fs.recordSize
	end := start + fs.recordSize
	if start < 0 || end > int64(len(fs.mftBytes)) {
		return MFTRecord{}, diskerr.New(diskerr.NotFound, "ntfs", "MFT record out of range", nil)
	}
	return ParseMFTRecord(fs.mftBytes[start:end])
}

// mftRefNumber extracts the 48-bit record number from a packed MFT
// reference (low 48 bits record number, high 16 bits sequence number).
func mftRefNumber(ref uint64) uint32 {
	return uint32(ref & 0x0000FFFFFFFFFFFF)
}

// fileNameOf picks the most useful $FILE_NAME attribute for a record,
// preferring a long (Win32/POSIX) name over a pure-DOS 8.3 duplicate.
func fileNameOf(r MFTRecord) (FileNameAttr, bool) {
	var out FileNameAttr
	found := false
	for _, a := range r.Attributes {
		if a.Type != AttrFileName || len(a.ResidentData) == 0 {
			continue
		}
		fn, err := parseFileNameAttr(a.ResidentData)
		if err != nil {
			continue
		}
		if !found || fn.Namespace != namespaceDOSOnly {
			out = fn
			found = true
			if fn.Namespace != namespaceDOSOnly {
				break
			}
		}
	}
	return out, found
}

func (fs *FileSystem) directoryChildren(record MFTRecord) ([]DirEntryRef, error) {
	rootAttr, ok := record.Find(AttrIndexRoot, indexAttrName)
	if !ok {
		return nil, diskerr.New(diskerr.NotFound, "ntfs", "not a directory", nil)
	}
	var allocContent []byte
	if allocAttr, ok := record.Find(AttrIndexAllocation, indexAttrName); ok {
		content, err := readContent(fs.stream, fs.clusterSize, allocAttr)
		if err != nil {
			return nil, err
		}
		allocContent = content
	}
	var out []DirEntryRef
	if err := walkIndex(rootAttr.ResidentData, allocContent, fs.boot.IndexBlockSize(), &out); err != nil {
		return nil, err
	}

	filtered := out[:0]
	for _, e := range out {
		if e.Name.Namespace == namespaceDOSOnly {
			continue // skip 8.3 duplicates; the long-name entry carries the same file
		}
		if e.Name.Name == "." || e.Name.Name == ".." {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered, nil
}

func splitPath(path string) []string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (fs *FileSystem) resolve(path string) (MFTRecord, error) {
	cur, err := fs.readRecord(rootDirRecord)
	if err != nil {
		return MFTRecord{}, err
	}
	for _, part := range splitPath(path) {
		children, err := fs.directoryChildren(cur)
		if err != nil {
			return MFTRecord{}, err
		}
		found := false
		for _, c := range children {
			if strings.EqualFold(c.Name.Name, part) {
				cur, err = fs.readRecord(mftRefNumber(c.Ref))
				if err != nil {
					return MFTRecord{}, err
				}
				found = true
				break
			}
		}
		if !found {
			return MFTRecord{}, diskerr.New(diskerr.NotFound, "ntfs", path, nil)
		}
	}
	return cur, nil
}

func (fs *FileSystem) Enumerate(path string) ([]vfs.DirEntry, error) {
	record, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	children, err := fs.directoryChildren(record)
	if err != nil {
		return nil, err
	}
	out := make([]vfs.DirEntry, 0, len(children))
	for _, c := range children {
		if fs.opts.HideHidden && c.Name.Hidden() {
			continue
		}
		if fs.opts.HideSystem && c.Name.System() {
			continue
		}
		kind := vfs.KindFile
		if c.Name.IsDirectory() {
			kind = vfs.KindDirectory
		}
		streamCount := 0
		if kind == vfs.KindFile {
			if child, err := fs.readRecord(mftRefNumber(c.Ref)); err == nil {
				streamCount = len(namedDataAttrs(child))
			}
		}
		out = append(out, vfs.DirEntry{Name: c.Name.Name, Kind: kind, StreamCount: streamCount})
	}
	return out, nil
}

func (fs *FileSystem) unnamedData(record MFTRecord) (Attribute, bool) {
	return record.Find(AttrData, "")
}

// namedDataAttrs returns record's $DATA attributes that carry a name, i.e.
// its NTFS alternate data streams; the unnamed $DATA attribute is the
// file's ordinary content and isn't one of these.
func namedDataAttrs(record MFTRecord) []Attribute {
	var out []Attribute
	for _, a := range record.FindAll(AttrData) {
		if a.Name != "" {
			out = append(out, a)
		}
	}
	return out
}

// Streams lists path's NTFS alternate data streams.
func (fs *FileSystem) Streams(path string) ([]vfs.StreamInfo, error) {
	record, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	named := namedDataAttrs(record)
	if len(named) == 0 {
		return nil, nil
	}
	out := make([]vfs.StreamInfo, 0, len(named))
	for _, a := range named {
		out = append(out, vfs.StreamInfo{Name: a.Name, Length: int64(a.RealSize)})
	}
	return out, nil
}

func (fs *FileSystem) OpenFile(path string) (sparse.Stream, error) {
	record, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if record.IsDirectory() {
		return nil, diskerr.New(diskerr.NotFound, "ntfs", path+" is a directory", nil)
	}
	attr, ok := fs.unnamedData(record)
	if !ok {
		return sparse.NewReaderAtStream(byteReaderAt(nil), 0), nil
	}
	content, err := readContent(fs.stream, fs.clusterSize, attr)
	if err != nil {
		return nil, err
	}
	return sparse.NewReaderAtStream(byteReaderAt(content), int64(len(content))), nil
}

func (fs *FileSystem) PathToExtents(path string) (sparse.Extents, error) {
	record, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	attr, ok := fs.unnamedData(record)
	if !ok {
		return nil, nil
	}
	return dataExtents(fs.clusterSize, attr), nil
}

func (fs *FileSystem) Attributes(path string) (vfs.Attributes, error) {
	record, err := fs.resolve(path)
	if err != nil {
		return vfs.Attributes{}, err
	}
	kind := vfs.KindFile
	if record.IsDirectory() {
		kind = vfs.KindDirectory
	}
	attrs := vfs.Attributes{Kind: kind}
	if si, ok := record.Find(AttrStandardInformation, ""); ok {
		info, err := parseStandardInformation(si.ResidentData)
		if err == nil {
			attrs.ReadOnly = info.ReadOnly()
			attrs.Hidden = info.Hidden()
			attrs.System = info.System()
		}
	}
	length, err := fs.Length(path)
	if err == nil {
		attrs.Length = length
	}
	return attrs, nil
}

func (fs *FileSystem) ModTimes(path string) (vfs.Times, error) {
	record, err := fs.resolve(path)
	if err != nil {
		return vfs.Times{}, err
	}
	si, ok := record.Find(AttrStandardInformation, "")
	if !ok {
		return vfs.Times{}, nil
	}
	info, err := parseStandardInformation(si.ResidentData)
	if err != nil {
		return vfs.Times{}, nil
	}
	return vfs.Times{
		Created:  filetimeToTime(info.Created),
		Accessed: filetimeToTime(info.Accessed),
		Modified: filetimeToTime(info.Modified),
	}, nil
}

// Length reports a file's size. When Options.FileLengthFromDirectoryEntries
// is set, the size recorded in the file's own duplicated $FILE_NAME
// attribute is used instead of the authoritative $DATA size — matching
// spec.md §6's documented staleness for hard-linked files.
func (fs *FileSystem) Length(path string) (int64, error) {
	record, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	if fs.opts.FileLengthFromDirectoryEntries {
		if fn, ok := fileNameOf(record); ok {
			return int64(fn.RealSize), nil
		}
	}
	attr, ok := fs.unnamedData(record)
	if !ok {
		return 0, nil
	}
	return int64(attr.RealSize), nil
}

func (fs *FileSystem) Unix(path string) (vfs.UnixInfo, bool, error) {
	if _, err := fs.resolve(path); err != nil {
		return vfs.UnixInfo{}, false, err
	}
	return vfs.UnixInfo{}, false, nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b)) {
		return 0, diskerr.New(diskerr.ReadError, "ntfs", "content read offset", nil)
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, diskerr.New(diskerr.Truncated, "ntfs", "content read", nil)
	}
	return n, nil
}
