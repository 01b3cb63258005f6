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
	"io"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/google/uuid"
)

var sparseContainerSignature = [8]byte{'v', 'h', 'd', 'x', 'f', 'i', 'l', 'e'}

// BlockState is a BAT entry's 3-bit state field in the newer BAT-indexed
// sparse container format, per spec.md §4.2.
type BlockState uint8

const (
	BlockNotPresent       BlockState = 0
	BlockUndefined        BlockState = 1
	BlockZero             BlockState = 2
	BlockUnmapped         BlockState = 3
	BlockFullyPresent     BlockState = 6
	BlockPartiallyPresent BlockState = 7
)

func (s BlockState) String() string {
	switch s {
	case BlockNotPresent:
		return "NotPresent"
	case BlockUndefined:
		return "Undefined"
	case BlockZero:
		return "Zero"
	case BlockUnmapped:
		return "Unmapped"
	case BlockFullyPresent:
		return "FullyPresent"
	case BlockPartiallyPresent:
		return "PartiallyPresent"
	default:
		return "Reserved"
	}
}

// SparseBATEntry is one 8-byte BAT slot: a 3-bit state plus a 44-bit file
// offset of the payload block, expressed in units of 1 MiB.
type SparseBATEntry struct {
	State      BlockState
	FileOffset uint64 // absolute byte offset of the block payload
}

func decodeSparseBATEntry(v uint64) SparseBATEntry {
	return SparseBATEntry{
		State:      BlockState(v & 0x7),
		FileOffset: (v >> 20) * (1 << 20),
	}
}

// SparseContainerMetadata is the subset of the metadata region spec.md §4.2
// requires: virtual-disk size, sector sizes and the disk's own unique ID.
type SparseContainerMetadata struct {
	VirtualDiskSize    uint64
	LogicalSectorSize  uint32
	PhysicalSectorSize uint32
	Page83Data         uuid.UUID
	BlockSize          uint32
}

// SparseContainer is the BAT-indexed sparse container with an internal
// metadata region used by the newer log-structured disk-image format,
// per spec.md §4.2.
type SparseContainer struct {
	src  sparse.Stream
	Meta SparseContainerMetadata
	bat  []SparseBATEntry

	chunkRatio int // blocks per bitmap "chunk" entry, per the 2^23 sector addressing limit
}

// OpenSparseContainer reads the BAT described at batOffset (one 8-byte entry
// per payload block, with an extra bitmap-block entry inserted every
// chunkRatio data blocks) and returns a Stream over the logical contents.
func OpenSparseContainer(src sparse.Stream, meta SparseContainerMetadata, batOffset int64, batEntries int) (*SparseContainer, error) {
	buf := make([]byte, batEntries*8)
	if err := sparse.ReadFull(src, buf, batOffset); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "vdisk", "sparse container BAT", err)
	}

	bat := make([]SparseBATEntry, batEntries)
	for i := range bat {
		bat[i] = decodeSparseBATEntry(bytesx.U64LE(buf[i*8 : i*8+8]))
	}

	chunkRatio := 1 << 23 / (int(meta.BlockSize) / int(meta.LogicalSectorSize))
	return &SparseContainer{src: src, Meta: meta, bat: bat, chunkRatio: chunkRatio}, nil
}

func (c *SparseContainer) Size() int64 { return int64(c.Meta.VirtualDiskSize) }

// dataEntryIndex maps a data-block index to its slot in bat, skipping the
// interleaved bitmap-block entries every chunkRatio blocks.
func (c *SparseContainer) dataEntryIndex(block int) int {
	return block + block/c.chunkRatio
}

func (c *SparseContainer) ReadAt(p []byte, off int64) (int, error) {
	read := 0
	bs := int64(c.Meta.BlockSize)
	for read < len(p) {
		cur := off + int64(read)
		if cur >= c.Size() {
			break
		}
		block := int(cur / bs)
		within := cur % bs
		want := bs - within
		if remaining := int64(len(p) - read); want > remaining {
			want = remaining
		}

		idx := c.dataEntryIndex(block)
		if idx >= len(c.bat) {
			return read, fmt.Errorf("sparse container: block %d out of BAT range", block)
		}
		entry := c.bat[idx]

		switch entry.State {
		case BlockFullyPresent, BlockPartiallyPresent:
			n, err := c.src.ReadAt(p[read:int64(read)+want], entry.FileOffset+within)
			read += n
			if err != nil && err != io.EOF {
				return read, err
			}
		default: // NotPresent, Undefined, Zero, Unmapped all read as zero
			for i := int64(0); i < want; i++ {
				p[int64(read)+i] = 0
			}
			read += int(want)
		}
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

func (c *SparseContainer) Extents(offset, length int64) (sparse.Extents, error) {
	end := offset + length
	if end > c.Size() {
		end = c.Size()
	}
	var out sparse.Extents
	bs := int64(c.Meta.BlockSize)
	for cur := offset; cur < end; cur = (cur/bs + 1) * bs {
		block := int(cur / bs)
		idx := c.dataEntryIndex(block)
		if idx >= len(c.bat) {
			break
		}
		blockEnd := (int64(block) + 1) * bs
		if blockEnd > end {
			blockEnd = end
		}
		switch c.bat[idx].State {
		case BlockFullyPresent, BlockPartiallyPresent:
			out = append(out, sparse.Extent{Offset: uint64(cur), Length: uint64(blockEnd - cur)})
		}
	}
	return sparse.Normalize(out), nil
}
