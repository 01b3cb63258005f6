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

	"github.com/corehound/diskvfs/pkg/sparse"
)

// DefaultLargeEntryChunkSize is the chunk granularity used to stage a large
// entry's content off a non-seekable archive stream.
const DefaultLargeEntryChunkSize = 32 << 20

// sequentialReaderAt adapts a forward-only io.Reader to io.ReaderAt by
// buffering every byte read so far. It only serves offsets it has already
// seen or can reach by reading further forward; it never seeks the
// underlying reader.
type sequentialReaderAt struct {
	r   io.Reader
	buf []byte
}

func (s *sequentialReaderAt) ReadAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	var readErr error
	for int64(len(s.buf)) < end && readErr == nil {
		chunk := make([]byte, 64<<10)
		n, err := s.r.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
		}
		readErr = err
	}

	if off >= int64(len(s.buf)) {
		if readErr != nil && readErr != io.EOF {
			return 0, readErr
		}
		return 0, io.EOF
	}

	n := copy(p, s.buf[off:])
	if n < len(p) {
		if readErr != nil && readErr != io.EOF {
			return n, readErr
		}
		return n, io.EOF
	}
	return n, nil
}

// NewLargeEntryBuffer stages a tar entry's content (read from the current
// position of a Reader, size bytes long) into a chunk-buffered
// sparse.Stream, for content producers that need random access to an entry
// read off a non-seekable archive source. The ChunkBuffer is sized to the
// whole entry (rounded up to a multiple of chunkSize) and filled when it is
// created, and the sequential reader beneath it also keeps every byte it has
// read, so the entry's full content is held in memory.
func NewLargeEntryBuffer(r io.Reader, size int64, chunkSize int) (sparse.Stream, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultLargeEntryChunkSize
	}
	backing := &sequentialReaderAt{r: io.LimitReader(r, size)}
	cb, err := sparse.NewChunkBuffer(backing, int(size), chunkSize)
	if err != nil {
		return nil, err
	}
	return &chunkBufferStream{cb: cb, size: size, chunkSize: chunkSize}, nil
}

// chunkBufferStream exposes a ChunkBuffer as a sparse.Stream, asking the
// buffer for each chunk a read touches.
type chunkBufferStream struct {
	cb        *sparse.ChunkBuffer
	size      int64
	chunkSize int
}

func (c *chunkBufferStream) Size() int64 { return c.size }

func (c *chunkBufferStream) ReadAt(p []byte, off int64) (int, error) {
	total := 0
	for total < len(p) {
		pos := off + int64(total)
		if pos >= c.size {
			break
		}
		numChunk := int(pos / int64(c.chunkSize))
		if err := c.cb.EnsureChunkIsBuffered(numChunk); err != nil {
			return total, err
		}
		chunk, err := c.cb.Chunk(numChunk)
		if err != nil {
			return total, err
		}
		chunkOff := int(pos % int64(c.chunkSize))
		n := copy(p[total:], chunk[chunkOff:])
		total += n
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

func (c *chunkBufferStream) Extents(offset, length int64) (sparse.Extents, error) {
	return sparse.Extents{{Offset: uint64(offset), Length: uint64(length)}}, nil
}
