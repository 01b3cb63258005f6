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

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	fileTypeMask = 0xF000
	fileTypeDir  = 0x4000
	fileTypeLink = 0xA000
	fileTypeReg  = 0x8000

	flagExtents = 0x00080000
)

// Inode is the subset of an ext2/3/4 on-disk inode this reader needs.
type Inode struct {
	Mode        uint16
	SizeLo      uint32
	SizeHi      uint32
	Flags       uint32
	BlocksCount uint32 // 512-byte sectors, legacy field
	Block       [15]uint32
}

func (i *Inode) Size() int64 { return int64(i.SizeHi)<<32 | int64(i.SizeLo) }
func (i *Inode) IsDir() bool { return i.Mode&fileTypeMask == fileTypeDir }
func (i *Inode) IsLink() bool { return i.Mode&fileTypeMask == fileTypeLink }
func (i *Inode) UsesExtents() bool { return i.Flags&flagExtents != 0 }

func parseInode(b []byte) (*Inode, error) {
	if len(b) < 100 {
		return nil, diskerr.New(diskerr.Truncated, "ext", "inode", nil)
	}
	in := &Inode{
		Mode:        bytesx.U16LE(b[0:]),
		SizeLo:      bytesx.U32LE(b[4:]),
		Flags:       bytesx.U32LE(b[32:]),
		BlocksCount: bytesx.U32LE(b[28:]),
	}
	for j := 0; j < 15; j++ {
		in.Block[j] = bytesx.U32LE(b[40+j*4:])
	}
	if len(b) >= 110 {
		in.SizeHi = bytesx.U32LE(b[108:])
	}
	return in, nil
}

// readInode loads inode number ino (1-indexed) given the group descriptor
// table, reading directly out of the whole-volume image data.
func readInode(data []byte, sb *Superblock, gdt []GroupDescriptor, ino uint32) (*Inode, error) {
	if ino == 0 {
		return nil, diskerr.New(diskerr.NotFound, "ext", "inode 0", nil)
	}
	group := (ino - 1) / sb.InodesPerGroup
	index := (ino - 1) % sb.InodesPerGroup
	if int(group) >= len(gdt) {
		return nil, diskerr.New(diskerr.CorruptStructure, "ext", "inode group out of range", nil)
	}
	off := int64(gdt[group].InodeTable())*sb.BlockSize() + int64(index)*int64(sb.InodeSize)
	if int(off)+128 > len(data) {
		return nil, diskerr.New(diskerr.Truncated, "ext", "inode table", nil)
	}
	return parseInode(data[off:])
}

// fastSymlinkTarget returns the embedded target of a symlink inode whose
// blocks_count is zero (spec.md §4.5.1 scenario 2): bytes 40..100 of the
// on-disk inode hold the path text instead of block pointers.
func fastSymlinkTarget(raw []byte, size int64) string {
	if int64(len(raw)) < 40+size {
		size = int64(len(raw)) - 40
	}
	if size < 0 {
		return ""
	}
	return string(raw[40 : 40+size])
}
