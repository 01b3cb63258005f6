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

// ZeroStream is a fixed-size Stream that reads as all-zero and reports no
// extents, used for the unmapped blocks of a dynamic/differencing VHD and
// for padding a volume out to its declared size.
type ZeroStream struct {
	length int64
}

func NewZeroStream(length int64) *ZeroStream { return &ZeroStream{length: length} }

func (z *ZeroStream) Size() int64 { return z.length }

func (z *ZeroStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > z.length {
		return 0, nil
	}
	max := z.length - off
	n := int64(len(p))
	if n > max {
		n = max
	}
	for i := int64(0); i < n; i++ {
		p[i] = 0
	}
	if n < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

func (z *ZeroStream) Extents(offset, length int64) (Extents, error) { return nil, nil }
