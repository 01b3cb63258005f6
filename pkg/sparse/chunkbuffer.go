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

// ChunkBuffer is a ring of fixed-size chunks read from an io.ReaderAt,
// sliding forward as EnsureChunkIsBuffered is asked for chunks past the
// current window. It backs sequential decompression of block-based codecs
// (LZX/XPRESS chunk streams) where the caller advances chunk-by-chunk but
// never seeks backward past the window.
type ChunkBuffer struct {
	r io.ReaderAt

	startChunk     int
	startChunkSlot int
	numChunks      int

	buf       []byte
	chunkSize int
}

func roundToMul(n, m int) int {
	k := (n + m - 1) / m
	return k * m
}

// NewChunkBuffer allocates a buffer holding at least size bytes, rounded up
// to a whole number of chunkSize chunks, and primes it from offset 0.
func NewChunkBuffer(r io.ReaderAt, size, chunkSize int) (*ChunkBuffer, error) {
	size = roundToMul(size, chunkSize)

	cb := &ChunkBuffer{
		r:         r,
		buf:       make([]byte, size),
		numChunks: -1,
		chunkSize: chunkSize,
	}

	err := cb.loadFull(0)
	return cb, err
}

// EnsureChunkIsBuffered slides the window forward until numChunk is present.
// It is an error to request a chunk older than the window's current start.
func (cb *ChunkBuffer) EnsureChunkIsBuffered(numChunk int) error {
	if numChunk < cb.startChunk {
		return fmt.Errorf("sparse: ChunkBuffer cannot rewind to chunk %d (window starts at %d)", numChunk, cb.startChunk)
	}

	if cb.hasChunk(numChunk) {
		return nil
	}
	if numChunk < cb.startChunk+cb.MaxChunks() {
		return cb.advanceChunks(numChunk - cb.startChunk)
	}
	return cb.loadFull(numChunk)
}

// Chunk returns the chunkSize-sized slice for numChunk, which must already
// be buffered (see EnsureChunkIsBuffered).
func (cb *ChunkBuffer) Chunk(numChunk int) ([]byte, error) {
	if !cb.hasChunk(numChunk) {
		return nil, fmt.Errorf("sparse: chunk %d not buffered", numChunk)
	}
	slot := (cb.startChunkSlot + (numChunk - cb.startChunk)) % cb.MaxChunks()
	off := slot * cb.chunkSize
	return cb.buf[off : off+cb.chunkSize], nil
}

func (cb *ChunkBuffer) loadFull(startChunk int) error {
	chunkOff := startChunk * cb.chunkSize

	n, err := cb.r.ReadAt(cb.buf, int64(chunkOff))
	if err != nil && err != io.EOF {
		return err
	}

	cb.startChunk = startChunk
	cb.startChunkSlot = 0
	cb.numChunks = roundToMul(n, cb.chunkSize) / cb.chunkSize
	return nil
}

func (cb *ChunkBuffer) advanceChunks(n int) error {
	loaded := 0
	for ; loaded < n; loaded++ {
		chunkOff := (cb.startChunk + cb.numChunks + loaded) * cb.chunkSize

		bufOff := cb.startChunkSlot * cb.chunkSize
		_, err := cb.r.ReadAt(cb.buf[bufOff:bufOff+cb.chunkSize], int64(chunkOff))
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		cb.startChunkSlot = (cb.startChunkSlot + 1) % cb.MaxChunks()
	}

	cb.startChunk += loaded
	cb.numChunks = cb.numChunks - n + loaded
	return nil
}

func (cb *ChunkBuffer) hasChunk(numChunk int) bool {
	return numChunk >= cb.startChunk && numChunk < cb.startChunk+cb.numChunks
}

// MaxChunks returns the window's capacity in whole chunks.
func (cb *ChunkBuffer) MaxChunks() int {
	return len(cb.buf) / cb.chunkSize
}
