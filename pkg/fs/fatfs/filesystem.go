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
package fatfs

import (
	"io"
	"strings"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
)

const maxChainClusters = 1 << 20

// FileSystem mounts a single FAT12/16/32 volume.
type FileSystem struct {
	stream sparse.Stream
	data   []byte
	bpb    *BPB
}

// Detect reads the boot sector's FAT type string at offset 0x36 (FAT12/16)
// or 0x52 (FAT32); this is a cheap signature check only, per spec.md §4.5 —
// full validation happens in Mount.
func Detect(stream sparse.Stream) bool {
	buf := make([]byte, 512)
	n, err := stream.ReadAt(buf, 0)
	if n < 90 || err != nil {
		return false
	}
	t16 := string(buf[0x36 : 0x36+5])
	t32 := string(buf[0x52 : 0x52+5])
	return t16 == "FAT12" || t16 == "FAT16" || t32 == "FAT32"
}

func Mount(stream sparse.Stream, opts vfs.Options) (vfs.Filesystem, error) {
	size := stream.Size()
	data := make([]byte, size)
	if err := sparse.ReadFull(stream, data, 0); err != nil && err != io.ErrUnexpectedEOF {
		return nil, diskerr.New(diskerr.ReadError, "fat", "volume read", err)
	}
	bpb, err := ParseBPB(data)
	if err != nil {
		return nil, err
	}
	return &FileSystem{stream: stream, data: data, bpb: bpb}, nil
}

func (fs *FileSystem) Root() string        { return "/" }
func (fs *FileSystem) CaseSensitive() bool { return false }

// Streams always returns nil: FAT has no alternate-data-stream concept.
func (fs *FileSystem) Streams(path string) ([]vfs.StreamInfo, error) { return nil, nil }

func (fs *FileSystem) fatTable() []byte {
	start := int64(fs.bpb.ReservedSectors) * int64(fs.bpb.BytesPerSector)
	length := int64(fs.bpb.SectorsPerFAT) * int64(fs.bpb.BytesPerSector)
	if int(start+length) > len(fs.data) {
		length = int64(len(fs.data)) - start
	}
	return fs.data[start : start+length]
}

// rootDirEntries returns the root directory's entries: a fixed-size region
// for FAT12/16, or a normal cluster chain for FAT32.
func (fs *FileSystem) rootDirEntries() []Entry {
	if fs.bpb.Variant != FAT32 {
		start := int64(fs.bpb.RootDirSector()) * int64(fs.bpb.BytesPerSector)
		end := start + int64(fs.bpb.RootEntryCount)*32
		if int(end) > len(fs.data) {
			end = int64(len(fs.data))
		}
		return parseDirectory(fs.data[start:end])
	}
	return fs.dirEntriesAt(fs.bpb.RootCluster)
}

func (fs *FileSystem) dirEntriesAt(cluster uint32) []Entry {
	chain := clusterChain(fs.fatTable(), fs.bpb, cluster, maxChainClusters)
	var all []Entry
	for _, c := range chain {
		start := int64(fs.bpb.ClusterToSector(c)) * int64(fs.bpb.BytesPerSector)
		end := start + fs.bpb.ClusterSize()
		if int(end) > len(fs.data) {
			end = int64(len(fs.data))
		}
		all = append(all, parseDirectory(fs.data[start:end])...)
	}
	return all
}

func (fs *FileSystem) resolve(path string) (*Entry, bool, error) {
	path = strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/")
	if path == "" {
		return nil, true, nil
	}
	parts := strings.Split(path, "/")
	entries := fs.rootDirEntries()
	var cur *Entry
	for i, part := range parts {
		var found *Entry
		for j := range entries {
			if strings.EqualFold(entries[j].Name, part) {
				found = &entries[j]
				break
			}
		}
		if found == nil {
			return nil, false, diskerr.New(diskerr.NotFound, "fat", path, nil)
		}
		cur = found
		if i < len(parts)-1 {
			if !cur.IsDir {
				return nil, false, diskerr.New(diskerr.NotFound, "fat", path, nil)
			}
			entries = fs.dirEntriesAt(cur.Cluster)
		}
	}
	return cur, cur.IsDir, nil
}

func (fs *FileSystem) Enumerate(path string) ([]vfs.DirEntry, error) {
	e, isDir, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if e == nil {
		entries = fs.rootDirEntries()
	} else if isDir {
		entries = fs.dirEntriesAt(e.Cluster)
	} else {
		return nil, diskerr.New(diskerr.NotFound, "fat", path, nil)
	}
	out := make([]vfs.DirEntry, 0, len(entries))
	for _, en := range entries {
		kind := vfs.KindFile
		if en.IsDir {
			kind = vfs.KindDirectory
		}
		out = append(out, vfs.DirEntry{Name: en.Name, Kind: kind})
	}
	return out, nil
}

func (fs *FileSystem) OpenFile(path string) (sparse.Stream, error) {
	e, isDir, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if e == nil || isDir {
		return nil, diskerr.New(diskerr.CorruptStructure, "fat", path, nil)
	}
	return &clusterStream{fs: fs, size: int64(e.Size), chain: clusterChain(fs.fatTable(), fs.bpb, e.Cluster, maxChainClusters)}, nil
}

func (fs *FileSystem) PathToExtents(path string) (sparse.Extents, error) {
	e, isDir, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if e == nil || isDir {
		return nil, diskerr.New(diskerr.CorruptStructure, "fat", path, nil)
	}
	chain := clusterChain(fs.fatTable(), fs.bpb, e.Cluster, maxChainClusters)
	var ext sparse.Extents
	for _, c := range chain {
		off := uint64(fs.bpb.ClusterToSector(c)) * uint64(fs.bpb.BytesPerSector)
		ext = append(ext, sparse.Extent{Offset: off, Length: uint64(fs.bpb.ClusterSize())})
	}
	return sparse.Normalize(ext), nil
}

func (fs *FileSystem) Attributes(path string) (vfs.Attributes, error) {
	e, isDir, err := fs.resolve(path)
	if err != nil {
		return vfs.Attributes{}, err
	}
	if e == nil {
		return vfs.Attributes{Kind: vfs.KindDirectory}, nil
	}
	kind := vfs.KindFile
	if isDir {
		kind = vfs.KindDirectory
	}
	return vfs.Attributes{Kind: kind, Length: int64(e.Size)}, nil
}

func (fs *FileSystem) ModTimes(path string) (vfs.Times, error) { return vfs.Times{}, nil }

func (fs *FileSystem) Length(path string) (int64, error) {
	a, err := fs.Attributes(path)
	return a.Length, err
}

func (fs *FileSystem) Unix(path string) (vfs.UnixInfo, bool, error) {
	return vfs.UnixInfo{}, false, nil
}

// clusterStream presents a file's cluster chain as a sparse.Stream.
type clusterStream struct {
	fs    *FileSystem
	size  int64
	chain []uint32
}

func (s *clusterStream) Size() int64 { return s.size }

func (s *clusterStream) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	end := off + int64(len(p))
	if end > s.size {
		end = s.size
	}
	n := int(end - off)
	clusterSize := s.fs.bpb.ClusterSize()

	written := 0
	for written < n {
		logical := off + int64(written)
		idx := int(logical / clusterSize)
		within := logical % clusterSize
		if idx >= len(s.chain) {
			break
		}
		sector := int64(s.fs.bpb.ClusterToSector(s.chain[idx])) * int64(s.fs.bpb.BytesPerSector)
		avail := clusterSize - within
		chunk := int64(n - written)
		if chunk > avail {
			chunk = avail
		}
		copy(p[written:written+int(chunk)], s.fs.data[sector+within:sector+within+chunk])
		written += int(chunk)
	}
	return written, nil
}

func (s *clusterStream) Extents(offset, length int64) (sparse.Extents, error) {
	return sparse.Extents{{Offset: uint64(offset), Length: uint64(length)}}, nil
}
