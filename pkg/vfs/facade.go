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
	"path"
	"strings"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
)

// Mounted wraps a reader-specific Filesystem with the uniform operations
// spec.md §4.7 names, so callers never need to know which reader mounted.
type Mounted struct {
	fs   Filesystem
	kind string // component name surfaced in diskerr.Error ("ntfs", "ext", ...)
}

// Mount wraps an already-mounted reader-specific Filesystem for façade use.
func Mount(fs Filesystem, component string) *Mounted {
	return &Mounted{fs: fs, kind: component}
}

// normalize converts backslashes to the canonical separator, folds case for
// readers whose lookup is case-insensitive, and drops a trailing separator.
func (m *Mounted) normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	if !m.fs.CaseSensitive() {
		p = strings.ToLower(p)
	}
	return p
}

func (m *Mounted) DirectoryExists(p string) bool {
	attrs, err := m.fs.Attributes(m.normalize(p))
	return err == nil && attrs.Kind == KindDirectory
}

func (m *Mounted) FileExists(p string) bool {
	attrs, err := m.fs.Attributes(m.normalize(p))
	return err == nil && attrs.Kind != KindDirectory
}

// Enumerate lists path's children matching pattern (empty pattern means
// "*"); when recursive is true it also descends into matching and
// non-matching subdirectories alike. Each returned DirEntry's Name carries
// the path relative to path, and is enriched with the reader's own
// Attributes/ModTimes for that child — the reader's Enumerate only fills in
// Name/Kind/StreamCount cheaply from its own directory-listing parse, so
// the facade is the one place the full uniform surface spec.md §4.7's
// enumerate names (attributes, timestamps, size, is_directory, is_symlink,
// stream_count) is actually assembled for a caller.
func (m *Mounted) Enumerate(p string, pattern string, recursive bool) ([]DirEntry, error) {
	if pattern == "" {
		pattern = "*"
	}
	base := m.normalize(p)
	var out []DirEntry
	if err := m.enumerate(base, "", pattern, recursive, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mounted) enumerate(absDir, relDir, pattern string, recursive bool, out *[]DirEntry) error {
	entries, err := m.fs.Enumerate(absDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rel := e.Name
		if relDir != "" {
			rel = relDir + "/" + e.Name
		}
		childAbs := path.Join(absDir, e.Name)
		if matchPattern(pattern, e.Name) {
			*out = append(*out, m.enrich(e, rel, childAbs))
		}
		if recursive && e.Kind == KindDirectory {
			if err := m.enumerate(childAbs, rel, pattern, recursive, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// enrich fills e's attribute/timestamp fields (not provided by the reader's
// own Enumerate) by calling back into the reader at absPath, and rewrites
// Name to rel so the caller sees a path relative to the enumerated root.
func (m *Mounted) enrich(e DirEntry, rel, absPath string) DirEntry {
	e.Name = rel
	if attrs, err := m.fs.Attributes(absPath); err == nil {
		e.Length = attrs.Length
		e.ReadOnly = attrs.ReadOnly
		e.Hidden = attrs.Hidden
		e.System = attrs.System
	}
	if times, err := m.fs.ModTimes(absPath); err == nil {
		e.Times = times
	}
	return e
}

// Open returns a content stream for path. mode/access are validated against
// spec.md §4.7: readers in this module are read-only, so only
// Open/OpenOrCreate with Read succeed.
func (m *Mounted) Open(p string, mode OpenMode, access AccessMode) (sparse.Stream, error) {
	if access != Read {
		return nil, diskerr.New(diskerr.NotWritable, m.kind, p, nil)
	}
	if mode != Open && mode != OpenOrCreate {
		return nil, diskerr.New(diskerr.NotWritable, m.kind, p, nil)
	}
	return m.fs.OpenFile(m.normalize(p))
}

func (m *Mounted) Attributes(p string) (Attributes, error) {
	return m.fs.Attributes(m.normalize(p))
}

func (m *Mounted) Times(p string) (Times, error) {
	return m.fs.ModTimes(m.normalize(p))
}

func (m *Mounted) Length(p string) (int64, error) {
	return m.fs.Length(m.normalize(p))
}

func (m *Mounted) UnixInfo(p string) (UnixInfo, bool, error) {
	return m.fs.Unix(m.normalize(p))
}

func (m *Mounted) PathToExtents(p string) (sparse.Extents, error) {
	return m.fs.PathToExtents(m.normalize(p))
}

// Streams lists path's alternate data streams, if its reader supports the
// concept; a reader that doesn't returns (nil, nil), same as a file with no
// alternate streams of its own.
func (m *Mounted) Streams(p string) ([]StreamInfo, error) {
	return m.fs.Streams(m.normalize(p))
}
