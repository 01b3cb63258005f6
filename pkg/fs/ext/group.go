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
package ext

import "github.com/corehound/diskvfs/pkg/bytesx"

// GroupDescriptor locates one block group's inode table and bitmaps. The
// high-32-bit fields only exist when the superblock carries the 64bit
// feature and desc_size > 32 (spec.md §4.5.1).
type GroupDescriptor struct {
	InodeTableLo uint32
	InodeTableHi uint32
}

func (g *GroupDescriptor) InodeTable() uint64 {
	return uint64(g.InodeTableHi)<<32 | uint64(g.InodeTableLo)
}

func parseGroupDescriptor(b []byte, desc64 bool) GroupDescriptor {
	g := GroupDescriptor{InodeTableLo: bytesx.U32LE(b[8:])}
	if desc64 && len(b) >= 32 {
		g.InodeTableHi = bytesx.U32LE(b[24:])
	}
	return g
}

// groupDescriptorTable reads every group descriptor from the block
// immediately following the superblock's block (block 1 for a 1KiB block
// size, block 0 otherwise, since the superblock itself occupies the first
// 1024 bytes regardless of block size).
func groupDescriptorTable(data []byte, sb *Superblock) []GroupDescriptor {
	descSize := sb.GroupDescSize()
	blockSize := sb.BlockSize()

	// With a 1KiB block size the boot block is block 0 and the superblock
	// occupies block 1, so the group-descriptor table starts at block 2;
	// with a larger block size the superblock only occupies the start of
	// block 0, so the table starts at block 1.
	gdtBlock := int64(1)
	if blockSize == 1024 {
		gdtBlock = 2
	}
	off := gdtBlock * blockSize

	n := int(sb.GroupCount())
	out := make([]GroupDescriptor, 0, n)
	for i := 0; i < n; i++ {
		start := off + int64(i*descSize)
		if int(start)+32 > len(data) {
			break
		}
		out = append(out, parseGroupDescriptor(data[start:], sb.Has64Bit() && descSize > 32))
	}
	return out
}
