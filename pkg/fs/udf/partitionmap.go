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

package udf

import (
	"strings"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	entityIdentMetadataPartition = "*UDF Metadata Partition"
	entityIdentSparablePartition = "*UDF Sparable Partition"
	entityIdentVirtualPartition  = "*UDF Virtual Partition"
)

// partitionMap is a decoded logical-volume partition map entry: type 1 maps
// a logical partition straight onto a physical partition number; type 2
// carries a 32-byte entity identifier distinguishing the metadata,
// sparable and virtual variants.
type partitionMap struct {
	kind            int
	partitionNumber uint16 // type 1, and the physical partition every type-2 variant ultimately reads through

	typeIdent    string
	metadataICB  LBAddr // type 2 metadata: file entry ICB for the metadata file
	sparingTable LBAddr // type 2 sparable: location of the first sparing table
	sparingCount uint16
}

// parsePartitionMaps decodes the logical volume descriptor's partition map
// table (ECMA-167 3/10.7, 4/24).
func parsePartitionMaps(b []byte, count uint32) ([]partitionMap, error) {
	maps := make([]partitionMap, 0, count)
	off := 0
	for i := uint32(0); i < count; i++ {
		if off+2 > len(b) {
			return nil, diskerr.New(diskerr.Truncated, "udf", "partition map header", nil)
		}
		kind := int(b[off])
		length := int(b[off+1])
		if length < 2 || off+length > len(b) {
			return nil, diskerr.New(diskerr.CorruptStructure, "udf", "partition map length", nil)
		}
		entry := b[off : off+length]

		switch kind {
		case partitionMapType1:
			if length < 6 {
				return nil, diskerr.New(diskerr.Truncated, "udf", "type 1 partition map", nil)
			}
			maps = append(maps, partitionMap{
				kind:            partitionMapType1,
				partitionNumber: bytesx.U16LE(entry[4:6]),
			})

		case partitionMapType2:
			m := partitionMap{kind: partitionMapType2}
			if length >= 4+32 {
				ident := strings.TrimRight(string(entry[4:4+23]), "\x00")
				m.typeIdent = ident
				switch ident {
				case entityIdentMetadataPartition:
					if length >= 40+8 {
						m.metadataICB = LBAddr{Block: bytesx.U32LE(entry[40:44]), PartitionRef: 0}
					}
				case entityIdentSparablePartition:
					if length >= 20+4+8 {
						m.sparingCount = bytesx.U16LE(entry[18:20])
						m.sparingTable = LBAddr{Block: bytesx.U32LE(entry[20:24]), PartitionRef: 0}
					}
				}
			}
			maps = append(maps, m)

		default:
			maps = append(maps, partitionMap{})
		}
		off += length
	}
	return maps, nil
}
