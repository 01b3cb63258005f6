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

package tarfmt

import (
	"io"

	"github.com/corehound/diskvfs/pkg/diskerr"
)

var zeroBlock [blockSize]byte

// Writer sequentially encodes ustar entries to w. WriteHeader injects a
// "././@LongLink" entry automatically when an entry's name has no valid
// name/prefix split.
type Writer struct {
	w         io.Writer
	entrySize int64 // declared Size of the entry currently being written
	remaining int64 // declared bytes not yet written via Write
	closed    bool
}

// NewWriter returns a Writer that appends entries to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteHeader finishes the current entry (zero-filling any undeclared
// content short of its declared Size, then padding to the next block
// boundary) and begins a new one.
func (wr *Writer) WriteHeader(hdr Header) error {
	if err := wr.finishEntry(); err != nil {
		return err
	}

	name, prefix, ok := splitName(hdr.Name)
	if !ok {
		if err := wr.writeLongLink(hdr.Name); err != nil {
			return err
		}
		name, prefix = truncateName(hdr.Name), ""
	}

	if _, err := wr.w.Write(encodeHeader(hdr, name, prefix)); err != nil {
		return diskerr.New(diskerr.ReadError, "tarfmt", "header block", err)
	}
	wr.entrySize = hdr.Size
	wr.remaining = hdr.Size
	return nil
}

// writeLongLink emits a typeflag-L entry whose body is the full path,
// NUL-terminated and padded to the next block boundary.
func (wr *Writer) writeLongLink(path string) error {
	body := append([]byte(path), 0)
	longHdr := Header{Name: longLinkName, Size: int64(len(body)), Typeflag: TypeLongLink}
	if _, err := wr.w.Write(encodeHeader(longHdr, longLinkName, "")); err != nil {
		return diskerr.New(diskerr.ReadError, "tarfmt", "long-link header", err)
	}
	if _, err := wr.w.Write(body); err != nil {
		return diskerr.New(diskerr.ReadError, "tarfmt", "long-link body", err)
	}
	if pad := padding(int64(len(body))); pad > 0 {
		if _, err := wr.w.Write(zeroBlock[:pad]); err != nil {
			return diskerr.New(diskerr.ReadError, "tarfmt", "long-link padding", err)
		}
	}
	return nil
}

// truncateName keeps the first 99 bytes of path, reserving the name
// field's terminating NUL, for the real entry that follows its long-link.
func truncateName(path string) string {
	if len(path) <= nameSize-1 {
		return path
	}
	return path[:nameSize-1]
}

// Write appends to the current entry's content. It is the caller's
// responsibility not to write more than the Size declared in the
// preceding WriteHeader call.
func (wr *Writer) Write(p []byte) (int, error) {
	n, err := wr.w.Write(p)
	wr.remaining -= int64(n)
	if err != nil {
		return n, diskerr.New(diskerr.ReadError, "tarfmt", "entry content", err)
	}
	return n, nil
}

// finishEntry zero-fills any undeclared content left for the current
// entry and rounds it out to the next 512-byte block boundary.
func (wr *Writer) finishEntry() error {
	if wr.entrySize == 0 && wr.remaining == 0 {
		return nil
	}
	if wr.remaining > 0 {
		if _, err := wr.w.Write(make([]byte, wr.remaining)); err != nil {
			return diskerr.New(diskerr.ReadError, "tarfmt", "entry content", err)
		}
		wr.remaining = 0
	}
	if pad := padding(wr.entrySize); pad > 0 {
		if _, err := wr.w.Write(zeroBlock[:pad]); err != nil {
			return diskerr.New(diskerr.ReadError, "tarfmt", "entry padding", err)
		}
	}
	wr.entrySize = 0
	return nil
}

// Close finishes the final entry and writes the archive's two-block
// end-of-archive marker.
func (wr *Writer) Close() error {
	if wr.closed {
		return nil
	}
	if err := wr.finishEntry(); err != nil {
		return err
	}
	if _, err := wr.w.Write(zeroBlock[:]); err != nil {
		return diskerr.New(diskerr.ReadError, "tarfmt", "end marker", err)
	}
	if _, err := wr.w.Write(zeroBlock[:]); err != nil {
		return diskerr.New(diskerr.ReadError, "tarfmt", "end marker", err)
	}
	wr.closed = true
	return nil
}
