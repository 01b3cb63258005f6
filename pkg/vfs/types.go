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

// Package vfs provides the uniform façade (spec.md §4.7) that callers use
// regardless of which file-system reader a volume mounted as.
package vfs

import "time"

// EntryKind tags what a DirEntry refers to.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
	KindSymlink
)

// DirEntry is one child of a Directory as returned by a reader's Enumerate
// (spec.md §3: "DirEntry { name, attributes, timestamps, size, is_directory,
// is_symlink, stream_count }"). A reader's own Enumerate only has to
// populate Name, Kind and StreamCount cheaply from the directory listing
// itself; Mounted.Enumerate (pkg/vfs/facade.go) fills in Length, Times,
// ReadOnly, Hidden and System per entry via the reader's Attributes/
// ModTimes methods before handing entries back to a caller.
type DirEntry struct {
	Name        string
	Kind        EntryKind
	Length      int64
	Times       Times
	ReadOnly    bool
	Hidden      bool
	System      bool
	StreamCount int
}

// StreamInfo describes one named data stream attached to a file, beyond its
// default unnamed content (NTFS alternate data streams, WIM named resource
// streams). spec.md §3: "Alternate streams follow the entry if
// stream_count > 0".
type StreamInfo struct {
	Name   string
	Length int64
}

// Times holds the timestamps a reader recovered for a path. Readers that
// don't track one of these leave it zero.
type Times struct {
	Created  time.Time
	Accessed time.Time
	Modified time.Time
}

// UnixInfo is populated only by readers that carry POSIX ownership/mode bits
// (ext, UDF); zero-valued elsewhere.
type UnixInfo struct {
	UID  uint32
	GID  uint32
	Mode uint32
}

// Attributes is the reader-agnostic subset of metadata every format can
// report for a path.
type Attributes struct {
	Kind     EntryKind
	Length   int64
	ReadOnly bool
	Hidden   bool
	System   bool
}

// OpenMode mirrors spec.md §4.7's open() mode parameter.
type OpenMode int

const (
	Open OpenMode = iota
	OpenOrCreate
)

// AccessMode mirrors spec.md §4.7's open() access parameter.
type AccessMode int

const (
	Read AccessMode = iota
	Write
)

// Options carries the per-reader configuration keys spec.md §6 names.
// Readers read only the keys they recognize and ignore the rest.
type Options struct {
	FileNameEncoding               string
	HideVersions                   bool
	ShortNameCreation              string
	FileLengthFromDirectoryEntries bool
	HideHidden                     bool
	HideSystem                     bool
}
