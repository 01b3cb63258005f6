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

import "io"

// Stream is the uniform random-access read contract every container,
// partition and file-system component in the module reads through
// (spec.md §3 "Sparse Stream"). Size is fixed for the lifetime of a Stream.
type Stream interface {
	io.ReaderAt
	Size() int64

	// Extents reports the populated (non-zero-backed) ranges within
	// [offset, offset+length). Implementations that cannot distinguish
	// sparse holes from data may report the whole requested range.
	Extents(offset, length int64) (Extents, error)
}

// ReaderAtStream adapts a plain io.ReaderAt of known size into a Stream with
// no sparse-hole knowledge — every byte is reported present.
type ReaderAtStream struct {
	R   io.ReaderAt
	Len int64
}

func NewReaderAtStream(r io.ReaderAt, size int64) *ReaderAtStream {
	return &ReaderAtStream{R: r, Len: size}
}

func (s *ReaderAtStream) ReadAt(p []byte, off int64) (int, error) { return s.R.ReadAt(p, off) }
func (s *ReaderAtStream) Size() int64                             { return s.Len }

func (s *ReaderAtStream) Extents(offset, length int64) (Extents, error) {
	return clampExtent(offset, length, s.Len), nil
}

func clampExtent(offset, length, size int64) Extents {
	if offset < 0 {
		offset = 0
	}
	end := offset + length
	if end > size {
		end = size
	}
	if end <= offset {
		return nil
	}
	return Extents{{Offset: uint64(offset), Length: uint64(end - offset)}}
}

// ReadFull reads exactly len(p) bytes from s at off, the way every fixed-size
// structure decode in the module does, returning io.ErrUnexpectedEOF on a
// short read instead of a partial count.
func ReadFull(s Stream, p []byte, off int64) error {
	n, err := s.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
