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
	"github.com/corehound/diskvfs/pkg/sparse"
)

// blockRun is one contiguous run of physical blocks backing a logical range.
type blockRun struct {
	logical  uint64
	physical uint64
	count    uint32
}

// resolveExtents walks an ext4 extent tree (header + 12-byte entries,
// internal nodes pointing at further leaf blocks) starting at the 60 bytes
// stored inline in the inode (spec.md §4.5.1 (b)).
func resolveExtents(data []byte, sb *Superblock, inlineBlock []uint32) ([]blockRun, error) {
	raw := make([]byte, 60)
	for i, v := range inlineBlock {
		bytesx.PutU32LE(raw[i*4:], v)
	}
	return walkExtentNode(data, sb, raw)
}

func walkExtentNode(data []byte, sb *Superblock, node []byte) ([]blockRun, error) {
	if len(node) < 12 || bytesx.U16LE(node[0:]) != 0xF30A {
		return nil, nil
	}
	entries := bytesx.U16LE(node[2:])
	depth := bytesx.U16LE(node[6:])

	var out []blockRun
	for i := 0; i < int(entries); i++ {
		e := node[12+i*12:]
		if len(e) < 12 {
			break
		}
		if depth == 0 {
			logical := uint64(bytesx.U32LE(e[0:]))
			lenField := bytesx.U16LE(e[4:])
			physHi := uint64(bytesx.U16LE(e[6:]))
			physLo := uint64(bytesx.U32LE(e[8:]))
			count := uint32(lenField)
			initialized := true
			if count > 32768 {
				count -= 32768
				initialized = false
			}
			_ = initialized
			out = append(out, blockRun{logical: logical, physical: physHi<<32 | physLo, count: count})
		} else {
			child := uint64(bytesx.U32LE(e[4:]))
			childHi := uint64(bytesx.U16LE(e[8:]))
			off := int64((childHi<<32|child)) * sb.BlockSize()
			if int(off)+int(sb.BlockSize()) > len(data) {
				continue
			}
			sub, err := walkExtentNode(data, sb, data[off:off+sb.BlockSize()])
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// resolveIndirect walks the legacy 12-direct + single/double/triple indirect
// scheme (spec.md §4.5.1 (c)).
func resolveIndirect(data []byte, sb *Superblock, in *Inode) []blockRun {
	blockSize := sb.BlockSize()
	ptrsPerBlock := int(blockSize / 4)
	var out []blockRun
	logical := uint64(0)

	appendBlock := func(phys uint32) {
		if phys == 0 {
			logical++
			return
		}
		out = append(out, blockRun{logical: logical, physical: uint64(phys), count: 1})
		logical++
	}

	readPtrs := func(blockNum uint32) []uint32 {
		if blockNum == 0 {
			return make([]uint32, ptrsPerBlock)
		}
		off := int64(blockNum) * blockSize
		if int(off)+int(blockSize) > len(data) {
			return nil
		}
		raw := data[off : off+blockSize]
		ptrs := make([]uint32, ptrsPerBlock)
		for i := range ptrs {
			ptrs[i] = bytesx.U32LE(raw[i*4:])
		}
		return ptrs
	}

	for i := 0; i < 12; i++ {
		appendBlock(in.Block[i])
	}
	for _, p := range readPtrs(in.Block[12]) {
		appendBlock(p)
	}
	for _, dbl := range readPtrs(in.Block[13]) {
		for _, p := range readPtrs(dbl) {
			appendBlock(p)
		}
	}
	for _, tpl := range readPtrs(in.Block[14]) {
		for _, dbl := range readPtrs(tpl) {
			for _, p := range readPtrs(dbl) {
				appendBlock(p)
			}
		}
	}
	return out
}

// contentExtents converts an inode's resolved block runs into absolute
// byte extents within the volume stream, per spec.md §4.5 path_to_extents.
func contentExtents(sb *Superblock, runs []blockRun, size int64) sparse.Extents {
	var ext sparse.Extents
	for _, r := range runs {
		off := r.logical * uint64(sb.BlockSize())
		length := uint64(r.count) * uint64(sb.BlockSize())
		if off >= uint64(size) {
			continue
		}
		if off+length > uint64(size) {
			length = uint64(size) - off
		}
		ext = append(ext, sparse.Extent{Offset: uint64(r.physical) * uint64(sb.BlockSize()), Length: length})
	}
	return sparse.Normalize(ext)
}
