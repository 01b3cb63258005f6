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

// BufferedStream wraps a Stream with a single sliding read-ahead window, the
// ReaderAt counterpart of BufferedReadSeeker: sequential readers (directory
// walks, file-content copies) avoid re-issuing a ReadAt per structure field.
type BufferedStream struct {
	src  Stream
	buf  []byte
	base int64 // stream offset of buf[0]
	n    int   // valid bytes in buf
}

func NewBufferedStream(src Stream, bufSize int) *BufferedStream {
	return &BufferedStream{src: src, buf: make([]byte, bufSize), base: -1}
}

func (b *BufferedStream) Size() int64 { return b.src.Size() }

func (b *BufferedStream) Extents(offset, length int64) (Extents, error) {
	return b.src.Extents(offset, length)
}

func (b *BufferedStream) ReadAt(p []byte, off int64) (int, error) {
	if len(p) > len(b.buf) {
		return b.src.ReadAt(p, off)
	}

	if b.base < 0 || off < b.base || off+int64(len(p)) > b.base+int64(b.n) {
		if err := b.fill(off); err != nil && err != io.EOF {
			return 0, err
		}
	}

	relOff := off - b.base
	if relOff < 0 || relOff > int64(b.n) {
		return 0, io.EOF
	}
	avail := int64(b.n) - relOff
	want := int64(len(p))
	if want > avail {
		want = avail
	}
	copy(p, b.buf[relOff:relOff+want])
	if want < int64(len(p)) {
		return int(want), io.EOF
	}
	return int(want), nil
}

func (b *BufferedStream) fill(off int64) error {
	n, err := b.src.ReadAt(b.buf, off)
	b.base = off
	b.n = n
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Peek returns the next n bytes at off without advancing any cursor,
// re-filling the window if the request spans past what's buffered.
func (b *BufferedStream) Peek(off int64, n int) ([]byte, error) {
	if n > len(b.buf) {
		return nil, io.ErrShortBuffer
	}
	out := make([]byte, n)
	read, err := b.ReadAt(out, off)
	return out[:read], err
}
