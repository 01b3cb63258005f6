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
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	forkTypeData     = uint8(0)
	forkTypeResource = uint8(0xFF)
)

// ExtentKey is a decoded HFSPlusExtentKey: identifies which fork of which
// CNID an extents-overflow record continues, and at what allocation-block
// offset within that fork.
type ExtentKey struct {
	ForkType   uint8
	FileID     uint32
	StartBlock uint32
}

func parseExtentKey(b []byte) (ExtentKey, error) {
	if len(b) < 10 {
		return ExtentKey{}, diskerr.New(diskerr.Truncated, "hfsplus", "extent key", nil)
	}
	return ExtentKey{
		ForkType:   b[0],
		FileID:     bytesx.U32BE(b[2:6]),
		StartBlock: bytesx.U32BE(b[6:10]),
	}, nil
}

// parseExtentRecord decodes an extents-overflow leaf record's data: eight
// more ExtentDescriptor runs continuing where the fork's inline ForkData
// left off.
func parseExtentRecord(b []byte) ([extentsPerForkData]ExtentDescriptor, error) {
	var out [extentsPerForkData]ExtentDescriptor
	if len(b) < extentsPerForkData*8 {
		return out, diskerr.New(diskerr.Truncated, "hfsplus", "extent overflow record", nil)
	}
	for i := 0; i < extentsPerForkData; i++ {
		off := i * 8
		out[i] = ExtentDescriptor{
			StartBlock: bytesx.U32BE(b[off : off+4]),
			BlockCount: bytesx.U32BE(b[off+4 : off+8]),
		}
	}
	return out, nil
}

// overflowExtents indexes the extents-overflow B-tree's data-fork records
// by file ID, since continuation records are only ever looked up by the
// fork that overran its inline ForkData extents. Resource-fork records are
// skipped.
type overflowExtents struct {
	byFile map[uint32][]ExtentDescriptor // data fork only; this volume's layout never exercises resource forks large enough to overflow
}

func loadOverflowExtents(tree []byte) (*overflowExtents, error) {
	o := &overflowExtents{byFile: make(map[uint32][]ExtentDescriptor)}
	if len(tree) == 0 {
		return o, nil
	}
	kvs, err := WalkLeafRecords(tree)
	if err != nil {
		return nil, err
	}
	for _, kv := range kvs {
		key, err := parseExtentKey(kv.Key)
		if err != nil {
			return nil, err
		}
		if key.ForkType != forkTypeData {
			continue
		}
		recs, err := parseExtentRecord(kv.Data)
		if err != nil {
			return nil, err
		}
		for _, e := range recs {
			if e.BlockCount == 0 {
				break
			}
			o.byFile[key.FileID] = append(o.byFile[key.FileID], e)
		}
	}
	return o, nil
}

// allExtents returns a fork's complete extent list: its inline ForkData
// extents followed by any continuation records chased through the
// extents-overflow file, in allocation-block order.
func (o *overflowExtents) allExtents(fileID uint32, fork ForkData) []ExtentDescriptor {
	extents := append([]ExtentDescriptor(nil), fork.nonEmptyExtents()...)
	if o == nil {
		return extents
	}
	extents = append(extents, o.byFile[fileID]...)
	return extents
}
