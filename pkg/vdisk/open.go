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
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
)

// IsSparseContainer reports whether src begins with the newer BAT-indexed
// sparse container's identifier, by sniffing its first 8 bytes.
func IsSparseContainer(src sparse.Stream) bool {
	var sig [8]byte
	if err := sparse.ReadFull(src, sig[:], 0); err != nil {
		return false
	}
	return sig == sparseContainerSignature
}

// Open parses src as a classic VHD-style container (fixed, dynamic, or
// differencing), falling back to the mirror footer at offset 0 if the tail
// footer at Size()-512 is corrupt, per spec.md §4.2.
func Open(src sparse.Stream, childDir string, parentOpener ParentOpener) (sparse.Stream, *Footer, error) {
	tailBuf := make([]byte, FooterSize)
	tailErr := sparse.ReadFull(src, tailBuf, src.Size()-FooterSize)

	var footer *Footer
	if tailErr == nil {
		if f, err := ParseFooter(tailBuf); err == nil {
			footer = f
		}
	}
	if footer == nil {
		headBuf := make([]byte, FooterSize)
		if err := sparse.ReadFull(src, headBuf, 0); err != nil {
			return nil, nil, diskerr.New(diskerr.Truncated, "vdisk", "no readable footer", err)
		}
		f, err := ParseFooter(headBuf)
		if err != nil {
			return nil, nil, err
		}
		footer = f
	}

	switch footer.DiskType {
	case DiskTypeFixed:
		d, err := OpenFixed(src, footer)
		return d, footer, err

	case DiskTypeDynamic:
		headerBuf := make([]byte, DynamicHeaderSize)
		if err := sparse.ReadFull(src, headerBuf, int64(footer.DataOffset)); err != nil {
			return nil, nil, diskerr.New(diskerr.Truncated, "vdisk", "dynamic header", err)
		}
		header, err := ParseDynamicHeader(headerBuf)
		if err != nil {
			return nil, nil, err
		}
		d, err := OpenDynamic(src, footer, header)
		return d, footer, err

	case DiskTypeDifferencing:
		headerBuf := make([]byte, DynamicHeaderSize)
		if err := sparse.ReadFull(src, headerBuf, int64(footer.DataOffset)); err != nil {
			return nil, nil, diskerr.New(diskerr.Truncated, "vdisk", "differencing header", err)
		}
		header, err := ParseDynamicHeader(headerBuf)
		if err != nil {
			return nil, nil, err
		}
		d, err := OpenDifferencing(src, footer, header, childDir, parentOpener)
		return d, footer, err

	default:
		return nil, nil, diskerr.New(diskerr.UnsupportedFeature, "vdisk", footer.DiskType.String(), nil)
	}
}
