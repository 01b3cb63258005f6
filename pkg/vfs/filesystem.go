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
package vfs

import (
	"github.com/corehound/diskvfs/pkg/sparse"
)

// Filesystem is the common contract every reader (ext, NTFS, HFS+, UDF,
// ISO9660, FAT, WIM) implements (spec.md §4.5). A Filesystem is mounted
// once over a volume-level sparse.Stream; the facade in this package is
// the uniform surface callers use afterward.
type Filesystem interface {
	// Root returns the path of the root directory ("/").
	Root() string

	// OpenFile returns a content stream for the file at path.
	OpenFile(path string) (sparse.Stream, error)

	// Enumerate lists the immediate children of the directory at path.
	// The returned slice is a snapshot; readers that walk on-disk
	// indirections (B-trees, index allocations) MAY return a fresh list
	// on repeated calls rather than guaranteeing restartability mid-walk.
	Enumerate(path string) ([]DirEntry, error)

	// PathToExtents returns the absolute byte ranges path occupies in the
	// underlying volume stream.
	PathToExtents(path string) (sparse.Extents, error)

	// Attributes, ModTimes, Length and Unix report metadata for path.
	// Readers that don't track a field return its zero value.
	Attributes(path string) (Attributes, error)
	ModTimes(path string) (Times, error)
	Length(path string) (int64, error)
	Unix(path string) (UnixInfo, bool, error)

	// CaseSensitive reports the reader's path-comparison rule
	// (spec.md §4.5 "Path conventions").
	CaseSensitive() bool

	// Streams lists path's named data streams beyond the default unnamed
	// one (NTFS alternate data streams, WIM named resource streams).
	// Readers with no such concept return (nil, nil).
	Streams(path string) ([]StreamInfo, error)
}

// Detector is implemented by every reader package's Detect function pattern
// (spec.md §4.5 "detect(stream) -> bool"); kept as a named func type so
// callers can hold a table of them without importing every reader package.
type Detector func(stream sparse.Stream) bool

// Mounter validates a stream's essential structures and returns a mounted
// Filesystem, or a *diskerr.Error on failure (spec.md §4.5 "mount(...)").
type Mounter func(stream sparse.Stream, opts Options) (Filesystem, error)
