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
)

// SubStream is a window onto another Stream, re-based so offset 0 in the
// SubStream is Base in the parent. Used to carve a partition or a volume
// segment out of the disk-level Stream without copying bytes.
type SubStream struct {
	parent Stream
	base   int64
	length int64
}

func NewSubStream(parent Stream, base, length int64) (*SubStream, error) {
	if base < 0 || length < 0 || base+length > parent.Size() {
		return nil, fmt.Errorf("sparse: substream [%d, %d) out of range of parent size %d", base, base+length, parent.Size())
	}
	return &SubStream{parent: parent, base: base, length: length}, nil
}

func (s *SubStream) Size() int64 { return s.length }

func (s *SubStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.length {
		return 0, fmt.Errorf("sparse: substream read offset %d out of range", off)
	}
	max := s.length - off
	if int64(len(p)) > max {
		p = p[:max]
	}
	n, err := s.parent.ReadAt(p, s.base+off)
	if err == nil && int64(n) < int64(len(p)) {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (s *SubStream) Extents(offset, length int64) (Extents, error) {
	end := offset + length
	if end > s.length {
		end = s.length
	}
	if end <= offset {
		return nil, nil
	}
	parentExtents, err := s.parent.Extents(s.base+offset, end-offset)
	if err != nil {
		return nil, err
	}
	out := make(Extents, len(parentExtents))
	for i, e := range parentExtents {
		out[i] = Extent{Offset: uint64(int64(e.Offset) - s.base), Length: e.Length}
	}
	return out, nil
}
