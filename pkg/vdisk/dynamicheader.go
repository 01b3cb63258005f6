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
	"fmt"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const DynamicHeaderSize = 1024

var dynamicHeaderCookie = [8]byte{'c', 'x', 's', 'p', 'a', 'r', 's', 'e'}

// ParentLocatorPlatform identifies how a differencing disk's parent path
// hint is encoded.
type ParentLocatorPlatform [4]byte

var (
	PlatformNone         = ParentLocatorPlatform{'N', 'o', 'n', 'e'}
	PlatformRelativeCU16 = ParentLocatorPlatform{'W', 'i', '2', 'r'} // relative, UTF-16
	PlatformAbsoluteCU16 = ParentLocatorPlatform{'W', 'i', '2', 'k'} // absolute, UTF-16
)

// ParentLocatorEntry is one of the 8 parent-path hints in a dynamic header.
type ParentLocatorEntry struct {
	Platform           ParentLocatorPlatform
	PlatformDataSpace  uint32
	PlatformDataLen    uint32
	PlatformDataOffset uint64
}

// DynamicHeader follows the 512-byte footer for dynamic and differencing
// disks and locates the Block Allocation Table, per spec.md §4.2.
type DynamicHeader struct {
	TableOffset       uint64
	MaxTableEntries   uint32
	BlockSize         uint32
	Checksum          uint32
	ParentUniqueID    [16]byte
	ParentUnicodeName string
	ParentLocators    [8]ParentLocatorEntry
}

// ParseDynamicHeader decodes the 1024-byte dynamic/differencing header.
func ParseDynamicHeader(data []byte) (*DynamicHeader, error) {
	if len(data) != DynamicHeaderSize {
		return nil, diskerr.New(diskerr.Truncated, "vdisk", "dynamic header", fmt.Errorf("expected %d bytes, got %d", DynamicHeaderSize, len(data)))
	}

	var cookie [8]byte
	copy(cookie[:], data[0:8])
	if cookie != dynamicHeaderCookie {
		return nil, diskerr.New(diskerr.BadMagic, "vdisk", "dynamic header cookie", nil)
	}

	h := &DynamicHeader{
		TableOffset:     bytesx.U64BE(data[16:24]),
		MaxTableEntries: bytesx.U32BE(data[28:32]),
		BlockSize:       bytesx.U32BE(data[32:36]),
		Checksum:        bytesx.U32BE(data[36:40]),
	}
	copy(h.ParentUniqueID[:], data[40:56])
	h.ParentUnicodeName = bytesx.UTF16BEString(data[64:576])

	for i := 0; i < 8; i++ {
		off := 576 + i*24
		var e ParentLocatorEntry
		copy(e.Platform[:], data[off:off+4])
		e.PlatformDataSpace = bytesx.U32BE(data[off+4 : off+8])
		e.PlatformDataLen = bytesx.U32BE(data[off+8 : off+12])
		e.PlatformDataOffset = bytesx.U64BE(data[off+16 : off+24])
		h.ParentLocators[i] = e
	}

	if got := dynamicHeaderChecksum(data); got != h.Checksum {
		return nil, diskerr.New(diskerr.ChecksumMismatch, "vdisk", fmt.Sprintf("dynamic header checksum: want 0x%08x got 0x%08x", h.Checksum, got), nil)
	}
	return h, nil
}

func dynamicHeaderChecksum(data []byte) uint32 {
	var sum uint32
	for i, b := range data {
		if i >= 36 && i < 40 {
			continue
		}
		sum += uint32(b)
	}
	return ^sum
}

// BlockCount returns the number of blocks implied by size and BlockSize.
func (h *DynamicHeader) BlockCount(size int64) int {
	return int((size + int64(h.BlockSize) - 1) / int64(h.BlockSize))
}
