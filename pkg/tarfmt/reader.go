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
	"strings"

	"github.com/corehound/diskvfs/pkg/diskerr"
)

// Reader sequentially decodes ustar entries from a non-seekable source.
// Next advances past the current entry's unread content and padding
// automatically, the same single-cursor model the rest of this module
// uses for content streams.
type Reader struct {
	r         io.Reader
	remaining int64
	pad       int64
}

// NewReader returns a Reader over r, positioned before the first entry.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Next advances to the next entry, transparently resolving any preceding
// "././@LongLink" entry into the returned Header's Name. It returns io.EOF
// once the archive's end-of-archive marker (an all-zero block) is reached.
func (r *Reader) Next() (*Header, error) {
	if err := r.skipRemainder(); err != nil {
		return nil, err
	}

	var pendingName string
	for {
		block := make([]byte, blockSize)
		if _, err := io.ReadFull(r.r, block); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, io.EOF
			}
			return nil, diskerr.New(diskerr.ReadError, "tarfmt", "header block", err)
		}

		hdr, ok, err := parseHeader(block)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.EOF
		}

		if hdr.Typeflag == TypeLongLink {
			body := make([]byte, hdr.Size)
			if _, err := io.ReadFull(r.r, body); err != nil {
				return nil, diskerr.New(diskerr.Truncated, "tarfmt", "long-link body", err)
			}
			if err := discard(r.r, padding(hdr.Size)); err != nil {
				return nil, err
			}
			pendingName = strings.TrimRight(string(body), "\x00")
			continue
		}

		if pendingName != "" {
			hdr.Name = pendingName
		}
		r.remaining = hdr.Size
		r.pad = padding(hdr.Size)
		return &hdr, nil
	}
}

// Read reads from the current entry's content, returning io.EOF once its
// declared size has been consumed.
func (r *Reader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.r.Read(p)
	r.remaining -= int64(n)
	return n, err
}

func (r *Reader) skipRemainder() error {
	if r.remaining > 0 {
		if err := discard(r.r, r.remaining); err != nil {
			return diskerr.New(diskerr.Truncated, "tarfmt", "entry content", err)
		}
		r.remaining = 0
	}
	if r.pad > 0 {
		if err := discard(r.r, r.pad); err != nil {
			return diskerr.New(diskerr.Truncated, "tarfmt", "entry padding", err)
		}
		r.pad = 0
	}
	return nil
}

func discard(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

// padding reports how many zero bytes follow an entry's content to round it
// up to the next 512-byte boundary.
func padding(size int64) int64 {
	rem := size % blockSize
	if rem == 0 {
		return 0
	}
	return blockSize - rem
}
