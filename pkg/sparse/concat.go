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
package sparse

import (
	"fmt"
	"io"
	"sort"
)

// ConcatStream presents a sequence of Streams laid end to end as a single
// Stream, the same cumulative-offset-index trick MultiReadSeeker uses for
// io.ReadSeeker, generalized to the ReaderAt/Extents contract (tar/WIM
// resource chains, striped LV segment concatenation).
type ConcatStream struct {
	parts    []Stream
	cumSizes []int64 // cumSizes[i] = end offset of parts[i] in the concatenated space
	size     int64
}

func NewConcatStream(parts []Stream) *ConcatStream {
	cum := make([]int64, len(parts))
	var total int64
	for i, p := range parts {
		total += p.Size()
		cum[i] = total
	}
	return &ConcatStream{parts: parts, cumSizes: cum, size: total}
}

func (c *ConcatStream) Size() int64 { return c.size }

// locate returns the index of the part containing offset and the offset
// relative to the start of that part.
func (c *ConcatStream) locate(offset int64) (int, int64) {
	i := sort.Search(len(c.parts), func(i int) bool { return c.cumSizes[i] > offset })
	if i >= len(c.parts) {
		return len(c.parts), 0
	}
	var base int64
	if i > 0 {
		base = c.cumSizes[i-1]
	}
	return i, offset - base
}

func (c *ConcatStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > c.size {
		return 0, fmt.Errorf("sparse: concat read offset %d out of range", off)
	}

	idx, rel := c.locate(off)
	read := 0
	for read < len(p) && idx < len(c.parts) {
		part := c.parts[idx]
		avail := part.Size() - rel
		want := int64(len(p) - read)
		if want > avail {
			want = avail
		}
		n, err := part.ReadAt(p[read:int64(read)+want], rel)
		read += n
		if err != nil && err != io.EOF {
			return read, err
		}
		idx++
		rel = 0
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

func (c *ConcatStream) Extents(offset, length int64) (Extents, error) {
	end := offset + length
	if end > c.size {
		end = c.size
	}
	if end <= offset {
		return nil, nil
	}

	idx, rel := c.locate(offset)
	var all []Extent
	partStart := offset - rel // global offset where parts[idx] begins
	for idx < len(c.parts) && partStart+rel < end {
		part := c.parts[idx]
		reqLen := end - (partStart + rel)
		if reqLen > part.Size()-rel {
			reqLen = part.Size() - rel
		}
		es, err := part.Extents(rel, reqLen)
		if err != nil {
			return nil, err
		}
		for _, e := range es {
			all = append(all, Extent{Offset: uint64(partStart) + e.Offset, Length: e.Length})
		}
		partStart += part.Size()
		rel = 0
		idx++
	}
	return Normalize(all), nil
}
