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
package vdisk

import (
	"io"
	"path/filepath"

	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
)

// ParentOpener resolves a parent-locator hint to an opened parent Stream.
// Implementations try the locator kinds spec.md §4.2 names, in order:
// absolute path hint, relative path hint, then the parent's unique ID.
type ParentOpener func(hint ParentHint) (sparse.Stream, *Footer, error)

// ParentHint carries every clue a differencing disk's header offers about
// its parent, so a ParentOpener can attempt each resolution strategy.
type ParentHint struct {
	AbsolutePath string
	RelativePath string
	UniqueID     [16]byte
	ChildDir     string
}

// DifferencingDisk layers a DynamicDisk over a parent chain: any block
// unallocated in this layer falls through to the parent. Writes are out of
// scope for this reader (spec.md §1 Non-goals).
type DifferencingDisk struct {
	*DynamicDisk
	parent sparse.Stream
}

// OpenDifferencing resolves header's parent locator chain via open and
// layers the child DynamicDisk over the resulting parent Stream.
func OpenDifferencing(src sparse.Stream, footer *Footer, header *DynamicHeader, childDir string, open ParentOpener) (*DifferencingDisk, error) {
	child, err := OpenDynamic(src, footer, header)
	if err != nil {
		return nil, err
	}

	hint := ParentHint{UniqueID: header.ParentUniqueID, ChildDir: childDir}
	for _, loc := range header.ParentLocators {
		switch loc.Platform {
		case PlatformAbsoluteCU16:
			hint.AbsolutePath = header.ParentUnicodeName
		case PlatformRelativeCU16:
			hint.RelativePath = filepath.Join(childDir, header.ParentUnicodeName)
		}
	}

	parentStream, parentFooter, err := open(hint)
	if err != nil {
		return nil, diskerr.New(diskerr.ParentMismatch, "vdisk", "could not resolve parent", err)
	}
	if parentFooter.UniqueID != header.ParentUniqueID {
		return nil, diskerr.New(diskerr.ParentMismatch, "vdisk", "parent unique ID does not match locator", nil)
	}

	return &DifferencingDisk{DynamicDisk: child, parent: parentStream}, nil
}

func (d *DifferencingDisk) ReadAt(p []byte, off int64) (int, error) {
	read := 0
	for read < len(p) {
		cur := off + int64(read)
		if cur >= d.Size() {
			break
		}
		block, within := d.blockOf(cur)
		bs := int64(d.Header.BlockSize)
		chunk := bs - within
		if remaining := int64(len(p) - read); chunk > remaining {
			chunk = remaining
		}

		if _, present := d.bat.SectorOffset(block, d.bitmapSectors); present {
			n, err := d.DynamicDisk.readBlock(block, within, p[read:int64(read)+chunk])
			read += n
			if err != nil {
				return read, err
			}
			continue
		}

		n, err := d.parent.ReadAt(p[read:int64(read)+chunk], cur)
		read += n
		if err != nil && err != io.EOF {
			return read, err
		}
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

func (d *DifferencingDisk) Extents(offset, length int64) (sparse.Extents, error) {
	own, err := d.DynamicDisk.Extents(offset, length)
	if err != nil {
		return nil, err
	}
	gap := sparse.Complement(own, offset+length)
	fromParent, err := d.parent.Extents(offset, length)
	if err != nil {
		return nil, err
	}
	return sparse.Union(own, sparse.Intersect(gap, fromParent)), nil
}
