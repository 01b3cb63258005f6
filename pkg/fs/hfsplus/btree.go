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

// Node kind values from a B-tree node descriptor's kind byte.
const (
	NodeKindLeaf   = int8(-1)
	NodeKindIndex  = int8(0)
	NodeKindHeader = int8(1)
	NodeKindMap    = int8(2)
)

const nodeDescriptorSize = 14

// nodeDescriptor is the 14-byte header every B-tree node starts with.
type nodeDescriptor struct {
	FLink      uint32
	BLink      uint32
	Kind       int8
	Height     uint8
	NumRecords uint16
}

func parseNodeDescriptor(node []byte) (nodeDescriptor, error) {
	if len(node) < nodeDescriptorSize {
		return nodeDescriptor{}, diskerr.New(diskerr.Truncated, "hfsplus", "b-tree node descriptor", nil)
	}
	return nodeDescriptor{
		FLink:      bytesx.U32BE(node[0:4]),
		BLink:      bytesx.U32BE(node[4:8]),
		Kind:       int8(node[8]),
		Height:     node[9],
		NumRecords: bytesx.U16BE(node[10:12]),
	}, nil
}

// nodeRecords splits one node's records using its trailing, reverse-order
// record-offset table (numRecords+1 big-endian uint16 entries, the extra
// one marking the start of free space).
func nodeRecords(node []byte) ([][]byte, error) {
	desc, err := parseNodeDescriptor(node)
	if err != nil {
		return nil, err
	}
	n := int(desc.NumRecords)
	if n == 0 {
		return nil, nil
	}
	tableStart := len(node) - 2*(n+1)
	if tableStart < nodeDescriptorSize {
		return nil, diskerr.New(diskerr.CorruptStructure, "hfsplus", "b-tree node record table", nil)
	}
	offsets := make([]int, n+1)
	for i := 0; i <= n; i++ {
		offsets[i] = int(bytesx.U16BE(node[len(node)-2*(i+1):]))
	}
	records := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		start, end := offsets[i], offsets[i+1]
		if start < 0 || end > len(node) || start > end {
			return nil, diskerr.New(diskerr.CorruptStructure, "hfsplus", "b-tree record bounds", nil)
		}
		records = append(records, node[start:end])
	}
	return records, nil
}

// headerNode is the fixed part of a B-tree's node 0 payload (the header
// record, right after the node descriptor).
type headerNode struct {
	NodeSize      uint16
	FirstLeafNode uint32
	LastLeafNode  uint32
	LeafRecords   uint32
	RootNode      uint32
}

func parseHeaderNode(tree []byte) (headerNode, error) {
	recs, err := nodeRecords(tree)
	if err != nil {
		return headerNode{}, err
	}
	if len(recs) == 0 || len(recs[0]) < 30 {
		return headerNode{}, diskerr.New(diskerr.CorruptStructure, "hfsplus", "b-tree header record", nil)
	}
	h := recs[0]
	return headerNode{
		RootNode:      bytesx.U32BE(h[4:8]),
		LeafRecords:   bytesx.U32BE(h[8:12]),
		FirstLeafNode: bytesx.U32BE(h[12:16]),
		LastLeafNode:  bytesx.U32BE(h[16:20]),
		NodeSize:      bytesx.U16BE(h[20:22]),
	}, nil
}

// KeyValue is one (key, data) record pulled from a leaf node.
type KeyValue struct {
	Key  []byte
	Data []byte
}

// WalkLeafRecords decodes every key/data pair in a catalog or
// extents-overflow B-tree by following the header node's leaf linked list
// start to end (spec.md §4.5.3's "iterate catalog leaf records"); index,
// header and map nodes are only ever used for their link pointers, never
// descended into by key.
func WalkLeafRecords(tree []byte) ([]KeyValue, error) {
	hdr, err := parseHeaderNode(tree)
	if err != nil {
		return nil, err
	}
	if hdr.NodeSize == 0 {
		return nil, diskerr.New(diskerr.CorruptStructure, "hfsplus", "zero b-tree node size", nil)
	}
	nodeSize := int(hdr.NodeSize)

	var out []KeyValue
	seen := make(map[uint32]bool)
	node := hdr.FirstLeafNode
	for node != 0 {
		if seen[node] {
			break
		}
		seen[node] = true
		off := int(node) * nodeSize
		if off < 0 || off+nodeSize > len(tree) {
			return nil, diskerr.New(diskerr.CorruptStructure, "hfsplus", "b-tree leaf node bounds", nil)
		}
		raw := tree[off : off+nodeSize]
		desc, err := parseNodeDescriptor(raw)
		if err != nil {
			return nil, err
		}
		if desc.Kind == NodeKindLeaf {
			recs, err := nodeRecords(raw)
			if err != nil {
				return nil, err
			}
			for _, r := range recs {
				kv, err := splitLeafRecord(r)
				if err != nil {
					return nil, err
				}
				out = append(out, kv)
			}
		}
		if node == hdr.LastLeafNode || desc.FLink == 0 {
			break
		}
		node = desc.FLink
	}
	return out, nil
}

// splitLeafRecord separates a leaf record into its length-prefixed key and
// the value that follows, padded to an even boundary.
func splitLeafRecord(r []byte) (KeyValue, error) {
	if len(r) < 2 {
		return KeyValue{}, diskerr.New(diskerr.Truncated, "hfsplus", "b-tree leaf record key length", nil)
	}
	keyLen := int(bytesx.U16BE(r[0:2]))
	keyEnd := 2 + keyLen
	if keyEnd > len(r) {
		return KeyValue{}, diskerr.New(diskerr.Truncated, "hfsplus", "b-tree leaf record key", nil)
	}
	dataStart := keyEnd
	if dataStart%2 != 0 {
		dataStart++ // keys are padded to an even total length
	}
	if dataStart > len(r) {
		dataStart = len(r)
	}
	return KeyValue{Key: r[2:keyEnd], Data: r[dataStart:]}, nil
}
