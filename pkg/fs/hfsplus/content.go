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

package hfsplus

import (
	"io"

	"github.com/corehound/diskvfs/pkg/sparse"
)

// forkByteExtents converts a fork's allocation-block extents (inline plus
// any chased through the extents-overflow file) into absolute byte ranges
// on the underlying volume stream, clipped to the fork's logical size.
func forkByteExtents(blockSize uint32, fileID uint32, fork ForkData, overflow *overflowExtents) sparse.Extents {
	var out sparse.Extents
	remaining := fork.LogicalSize
	for _, e := range overflow.allExtents(fileID, fork) {
		if remaining == 0 {
			break
		}
		runBytes := uint64(e.BlockCount) * uint64(blockSize)
		if runBytes > remaining {
			runBytes = remaining
		}
		out = append(out, sparse.Extent{
			Offset: uint64(e.StartBlock) * uint64(blockSize),
			Length: runBytes,
		})
		remaining -= runBytes
	}
	return sparse.Normalize(out)
}

// readFork reads a fork's full content into memory by concatenating its
// byte extents off the volume stream, the same whole-content strategy the
// catalog walk itself uses for the B-trees.
func readFork(volume sparse.Stream, blockSize uint32, fileID uint32, fork ForkData, overflow *overflowExtents) ([]byte, error) {
	extents := forkByteExtents(blockSize, fileID, fork, overflow)
	out := make([]byte, 0, fork.LogicalSize)
	for _, e := range extents {
		buf := make([]byte, e.Length)
		if err := sparse.ReadFull(volume, buf, int64(e.Offset)); err != nil && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		out = append(out, buf...)
	}
	if uint64(len(out)) > fork.LogicalSize {
		out = out[:fork.LogicalSize]
	}
	return out, nil
}
