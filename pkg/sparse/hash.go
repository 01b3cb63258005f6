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
	"hash"
)

// HashStream observes every byte read through it into h, provided reads are
// strictly sequential and contiguous from offset 0 — the access pattern WIM
// content verification and ext/NTFS checksum recomputation both use. A
// random-access or gapped read returns an error rather than silently
// producing a wrong digest.
type HashStream struct {
	src  Stream
	h    hash.Hash
	next int64
}

func NewHashStream(src Stream, h hash.Hash) *HashStream {
	return &HashStream{src: src, h: h}
}

func (h *HashStream) Size() int64 { return h.src.Size() }

func (h *HashStream) Extents(offset, length int64) (Extents, error) {
	return h.src.Extents(offset, length)
}

func (h *HashStream) ReadAt(p []byte, off int64) (int, error) {
	if off != h.next {
		return 0, fmt.Errorf("sparse: HashStream requires sequential reads, got offset %d, expected %d", off, h.next)
	}
	n, err := h.src.ReadAt(p, off)
	if n > 0 {
		h.h.Write(p[:n])
		h.next += int64(n)
	}
	return n, err
}

// Sum returns the digest of every byte read so far.
func (h *HashStream) Sum() []byte { return h.h.Sum(nil) }
