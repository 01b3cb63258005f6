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
	"github.com/corehound/diskvfs/pkg/sparse"
)

// FixedDisk is a raw sector payload followed by a 512-byte footer, per
// spec.md §4.2. Every byte up to CurrentSize is present; there is no BAT.
type FixedDisk struct {
	src    sparse.Stream
	Footer *Footer
}

// OpenFixed wraps src (the whole container, footer included) as a fixed-disk
// payload stream. If the tail footer fails to parse, the caller is expected
// to have already tried the mirror footer at offset 0 — see Open.
func OpenFixed(src sparse.Stream, footer *Footer) (*FixedDisk, error) {
	return &FixedDisk{src: src, Footer: footer}, nil
}

func (d *FixedDisk) Size() int64 { return int64(d.Footer.CurrentSize) }

func (d *FixedDisk) ReadAt(p []byte, off int64) (int, error) {
	return d.src.ReadAt(p, off)
}

func (d *FixedDisk) Extents(offset, length int64) (sparse.Extents, error) {
	return d.src.Extents(offset, length)
}
