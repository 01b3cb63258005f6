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

// Package hfsplus reads HFS+ (and HFSX) volumes: the volume header, the
// catalog and extents-overflow B-trees, and fork content resolved through
// initial plus overflow extents.
package hfsplus

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const extentsPerForkData = 8

// ExtentDescriptor is one (start allocation block, block count) run.
type ExtentDescriptor struct {
	StartBlock uint32
	BlockCount uint32
}

// ForkData is the 80-byte descriptor HFS+ uses for every fork: a data
// fork, a resource fork, and each of the four special files named from the
// volume header.
type ForkData struct {
	LogicalSize uint64
	ClumpSize   uint32
	TotalBlocks uint32
	Extents     [extentsPerForkData]ExtentDescriptor
}

const forkDataSize = 80

func parseForkData(b []byte) (ForkData, error) {
	if len(b) < forkDataSize {
		return ForkData{}, diskerr.New(diskerr.Truncated, "hfsplus", "fork data", nil)
	}
	f := ForkData{
		LogicalSize: bytesx.U64BE(b[0:8]),
		ClumpSize:   bytesx.U32BE(b[8:12]),
		TotalBlocks: bytesx.U32BE(b[12:16]),
	}
	for i := 0; i < extentsPerForkData; i++ {
		off := 16 + i*8
		f.Extents[i] = ExtentDescriptor{
			StartBlock: bytesx.U32BE(b[off : off+4]),
			BlockCount: bytesx.U32BE(b[off+4 : off+8]),
		}
	}
	return f, nil
}

// nonEmptyExtents returns the leading extents with a non-zero block count,
// the convention HFS+ uses to mean "no more extents in this descriptor".
func (f ForkData) nonEmptyExtents() []ExtentDescriptor {
	var out []ExtentDescriptor
	for _, e := range f.Extents {
		if e.BlockCount == 0 {
			break
		}
		out = append(out, e)
	}
	return out
}
