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

package wimfs

import (
	"io"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/compress/lzx"
	"github.com/corehound/diskvfs/pkg/compress/xpress"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

// codec is the chunk decompressor an archive's header flags select.
type codec int

const (
	codecStore codec = iota
	codecXpress
	codecLZX
)

// readResource returns the fully decompressed bytes a ResourceHeader
// describes, reading the compressed form from src at Offset.
//
// A resource whose on-disk Size equals its OriginalSize (or that isn't
// flagged Compressed) is stored verbatim. Otherwise it is split into
// chunkSize-sized logical chunks, each compressed independently; an
// (numChunks-1)-entry little-endian u32 table of cumulative compressed
// chunk offsets precedes the chunk data (spec.md §4.6).
func readResource(src io.ReaderAt, h ResourceHeader, c codec, chunkSize uint32) ([]byte, error) {
	if h.OriginalSize == 0 {
		return nil, nil
	}
	raw := make([]byte, h.Size)
	if _, err := src.ReadAt(raw, int64(h.Offset)); err != nil {
		return nil, diskerr.New(diskerr.ReadError, "wimfs", "resource body", err)
	}
	if !h.Compressed() || c == codecStore || h.Size == h.OriginalSize {
		if uint64(len(raw)) > h.OriginalSize {
			raw = raw[:h.OriginalSize]
		}
		return raw, nil
	}
	if chunkSize == 0 {
		chunkSize = 32 * 1024
	}

	numChunks := int((h.OriginalSize + uint64(chunkSize) - 1) / uint64(chunkSize))
	if numChunks <= 1 {
		return decodeChunk(c, raw, int(h.OriginalSize))
	}

	tableLen := (numChunks - 1) * 4
	if tableLen > len(raw) {
		return nil, diskerr.New(diskerr.Truncated, "wimfs", "chunk offset table", nil)
	}
	offsets := make([]uint32, numChunks-1)
	for i := range offsets {
		offsets[i] = bytesx.U32LE(raw[i*4:])
	}
	chunksStart := tableLen

	out := make([]byte, 0, h.OriginalSize)
	prev := uint32(0)
	remaining := h.OriginalSize
	for i := 0; i < numChunks; i++ {
		var end uint32
		if i < numChunks-1 {
			end = offsets[i]
		} else {
			end = uint32(len(raw) - chunksStart)
		}
		if uint64(end) < uint64(prev) || chunksStart+int(end) > len(raw) {
			return nil, diskerr.New(diskerr.CorruptStructure, "wimfs", "chunk offset table", nil)
		}
		chunkBytes := raw[chunksStart+int(prev) : chunksStart+int(end)]
		thisSize := uint64(chunkSize)
		if remaining < thisSize {
			thisSize = remaining
		}
		dec, err := decodeChunk(c, chunkBytes, int(thisSize))
		if err != nil {
			return nil, err
		}
		out = append(out, dec...)
		remaining -= thisSize
		prev = end
	}
	return out, nil
}

func decodeChunk(c codec, compressed []byte, size int) ([]byte, error) {
	switch c {
	case codecXpress:
		return xpress.Decode(compressed, size)
	case codecLZX:
		return lzx.Decode(compressed, size, nil)
	default:
		if len(compressed) < size {
			return nil, diskerr.New(diskerr.Truncated, "wimfs", "stored chunk", nil)
		}
		return compressed[:size], nil
	}
}
