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

	"github.com/corehound/diskvfs/pkg/sparse"
)

// DynamicDisk is a footer + header + Block Allocation Table container whose
// unallocated blocks read as zero, per spec.md §4.2.
type DynamicDisk struct {
	src    sparse.Stream
	Footer *Footer
	Header *DynamicHeader
	bat    BlockAllocationTable

	bitmapSectors int
	bitmapBytes   int
}

// OpenDynamic reads the BAT described by header out of src and returns a
// Stream over the logical (fully expanded) disk contents.
func OpenDynamic(src sparse.Stream, footer *Footer, header *DynamicHeader) (*DynamicDisk, error) {
	n := header.BlockCount(int64(footer.CurrentSize))
	bat, err := ReadBAT(readerAtOf(src), int64(header.TableOffset), n)
	if err != nil {
		return nil, err
	}

	bitmapSectors := BitmapSectorCount(header.BlockSize)
	return &DynamicDisk{
		src:           src,
		Footer:        footer,
		Header:        header,
		bat:           bat,
		bitmapSectors: bitmapSectors,
		bitmapBytes:   (int(header.BlockSize)/512 + 7) / 8,
	}, nil
}

func (d *DynamicDisk) Size() int64 { return int64(d.Footer.CurrentSize) }

func (d *DynamicDisk) blockOf(off int64) (block int, within int64) {
	bs := int64(d.Header.BlockSize)
	return int(off / bs), off % bs
}

func (d *DynamicDisk) ReadAt(p []byte, off int64) (int, error) {
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

		n, err := d.readBlock(block, within, p[read:int64(read)+chunk])
		read += n
		if err != nil {
			return read, err
		}
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

func (d *DynamicDisk) readBlock(block int, within int64, dst []byte) (int, error) {
	sectorOff, present := d.bat.SectorOffset(block, d.bitmapSectors)
	if !present {
		for i := range dst {
			dst[i] = 0
		}
		return len(dst), nil
	}

	blockStart := (int64(d.bat[block]) * 512)
	bitmap := make([]byte, d.bitmapBytes)
	if _, err := d.src.ReadAt(bitmap, blockStart); err != nil && err != io.EOF {
		return 0, err
	}
	bm := sectorBitmap(bitmap)

	read := 0
	for read < len(dst) {
		sector := int((within + int64(read)) / 512)
		sectorOffWithin := (within + int64(read)) % 512
		want := int64(512) - sectorOffWithin
		if remaining := int64(len(dst) - read); want > remaining {
			want = remaining
		}

		if bm.defined(sector) {
			n, err := d.src.ReadAt(dst[read:int64(read)+want], sectorOff+int64(sector)*512+sectorOffWithin)
			read += n
			if err != nil && err != io.EOF {
				return read, err
			}
		} else {
			for i := int64(0); i < want; i++ {
				dst[int64(read)+i] = 0
			}
			read += int(want)
		}
	}
	return read, nil
}

func (d *DynamicDisk) Extents(offset, length int64) (sparse.Extents, error) {
	end := offset + length
	if end > d.Size() {
		end = d.Size()
	}
	var out sparse.Extents
	bs := int64(d.Header.BlockSize)
	for cur := offset; cur < end; cur = (cur/bs + 1) * bs {
		block, _ := d.blockOf(cur)
		blockEnd := (int64(block) + 1) * bs
		if blockEnd > end {
			blockEnd = end
		}
		if _, present := d.bat.SectorOffset(block, d.bitmapSectors); present {
			out = append(out, sparse.Extent{Offset: uint64(cur), Length: uint64(blockEnd - cur)})
		}
	}
	return sparse.Normalize(out), nil
}

// readerAtOf adapts a sparse.Stream to a plain io.ReaderAt for BAT reads.
func readerAtOf(s sparse.Stream) io.ReaderAt { return readerAtAdapter{s} }

type readerAtAdapter struct{ s sparse.Stream }

func (a readerAtAdapter) ReadAt(p []byte, off int64) (int, error) { return a.s.ReadAt(p, off) }
