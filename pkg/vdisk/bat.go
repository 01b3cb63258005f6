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

	"github.com/corehound/diskvfs/pkg/bytesx"
)

// UnallocatedBlock marks a Block Allocation Table entry with no backing
// sector offset.
const UnallocatedBlock = 0xFFFFFFFF

// BlockAllocationTable is an array of per-block sector offsets, one `u32`
// entry per fixed-size block, per spec.md §4.2.
type BlockAllocationTable []uint32

// ReadBAT reads a dynamic/differencing disk's BAT of n entries at off.
func ReadBAT(r io.ReaderAt, off int64, n int) (BlockAllocationTable, error) {
	buf := make([]byte, n*4)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, err
	}
	bat := make(BlockAllocationTable, n)
	for i := range bat {
		bat[i] = bytesx.U32BE(buf[i*4 : i*4+4])
	}
	return bat, nil
}

// SectorOffset returns the absolute byte offset of block i's data sectors
// (past its bitmap), or false if the block is unallocated.
func (bat BlockAllocationTable) SectorOffset(i int, bitmapSectors int) (int64, bool) {
	if i < 0 || i >= len(bat) || bat[i] == UnallocatedBlock {
		return 0, false
	}
	return (int64(bat[i]) + int64(bitmapSectors)) * 512, true
}

// BitmapSectorCount returns the number of 512-byte sectors the per-block
// defined-sector bitmap occupies for a given block size.
func BitmapSectorCount(blockSize uint32) int {
	sectorsPerBlock := int(blockSize) / 512
	bitmapBytes := (sectorsPerBlock + 7) / 8
	return (bitmapBytes + 511) / 512
}

// sectorBitmap reports, for each sector within a block, whether it is
// flagged as defined (a 1 bit means "holds real data").
type sectorBitmap []byte

func (b sectorBitmap) defined(sector int) bool {
	byteIdx := sector / 8
	if byteIdx >= len(b) {
		return false
	}
	bit := 7 - uint(sector%8)
	return b[byteIdx]&(1<<bit) != 0
}
