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
	"io"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
)

// volume holds everything Mount needs from the anchor pointer, the main
// volume descriptor sequence and the file-set descriptor.
type volume struct {
	blockSize        uint32
	partitionStarts  map[uint16]uint32 // physical partition number -> starting block
	primaryPartition uint16
	havePrimary      bool
	partitionMaps    []partitionMap
	rootICB          LBAddr
}

// Detect looks for the "NSR02"/"NSR03" volume recognition descriptor in the
// volume recognition sequence starting at sector 16, per spec.md §4.5.4.
func Detect(stream sparse.Stream) bool {
	buf := make([]byte, 2048)
	for sector := 0; sector < 16; sector++ {
		n, err := stream.ReadAt(buf, vrsStart+int64(sector)*2048)
		if n < 6 || err != nil && err != io.EOF {
			break
		}
		ident := string(buf[1:6])
		switch ident {
		case stdIdentNSR02, stdIdentNSR03:
			return true
		case stdIdentBEA01:
			continue
		case stdIdentTEA01:
			return false
		default:
			return false
		}
	}
	return false
}

// findAnchor locates the Anchor Volume Descriptor Pointer at one of the
// conventional sector offsets (ECMA-167 2/8.2): 256, N-256 or N, and
// finally sector 512.
func findAnchor(stream sparse.Stream) (ExtentAD, error) {
	total := stream.Size() / SectorSize
	candidates := []int64{256, total - 256, total, 512}
	buf := make([]byte, 512)
	for _, sector := range candidates {
		if sector < 0 || sector*SectorSize >= stream.Size() {
			continue
		}
		if err := sparse.ReadFull(stream, buf, sector*SectorSize); err != nil && err != io.ErrUnexpectedEOF {
			continue
		}
		tag, err := parseTag(buf)
		if err != nil || tag.Identifier != tagAnchorVolume {
			continue
		}
		if _, err := validateTag(buf, tagAnchorVolume); err != nil {
			continue
		}
		return ExtentAD{
			Length:   bytesx.U32LE(buf[16:20]),
			Location: bytesx.U32LE(buf[20:24]),
		}, nil
	}
	return ExtentAD{}, diskerr.New(diskerr.NotFound, "udf", "anchor volume descriptor pointer", nil)
}

// readVolumeDescriptorSequence walks the main VDS one sector at a time,
// collecting partition starting locations, the logical block size and
// partition map table, and the file-set descriptor's root ICB.
func readVolumeDescriptorSequence(stream sparse.Stream, extent ExtentAD) (*volume, error) {
	v := &volume{blockSize: SectorSize, partitionStarts: make(map[uint16]uint32)}
	var fileSetExtent *LongAD

	sector := int64(extent.Location)
	end := sector + int64(extent.Length)/SectorSize
	buf := make([]byte, SectorSize)
	for ; sector < end; sector++ {
		if err := sparse.ReadFull(stream, buf, sector*SectorSize); err != nil && err != io.ErrUnexpectedEOF {
			return nil, diskerr.New(diskerr.ReadError, "udf", "volume descriptor sequence", err)
		}
		tag, err := parseTag(buf)
		if err != nil {
			return nil, err
		}

		switch tag.Identifier {
		case tagPartition:
			if _, err := validateTag(buf, tagPartition); err != nil {
				return nil, err
			}
			partitionNumber := bytesx.U16LE(buf[22:24])
			v.partitionStarts[partitionNumber] = bytesx.U32LE(buf[188:192])
			if !v.havePrimary {
				v.primaryPartition = partitionNumber
				v.havePrimary = true
			}

		case tagLogicalVolume:
			if _, err := validateTag(buf, tagLogicalVolume); err != nil {
				return nil, err
			}
			if blockSize := bytesx.U32LE(buf[212:216]); blockSize != 0 {
				v.blockSize = blockSize
			}
			mapTableLength := bytesx.U32LE(buf[264:268])
			numMaps := bytesx.U32LE(buf[268:272])
			if numMaps > 0 && mapTableLength > 0 {
				mapEnd := 440 + int(mapTableLength)
				if mapEnd > len(buf) {
					return nil, diskerr.New(diskerr.Truncated, "udf", "partition map table", nil)
				}
				maps, err := parsePartitionMaps(buf[440:mapEnd], numMaps)
				if err != nil {
					return nil, err
				}
				v.partitionMaps = maps
			}
			fsExtent := parseLongAD(buf[248:264])
			fileSetExtent = &fsExtent

		case tagTerminating:
			sector = end // stop the loop
		}
	}

	if fileSetExtent == nil {
		return nil, diskerr.New(diskerr.CorruptStructure, "udf", "no logical volume descriptor found", nil)
	}

	fsdBlock, err := v.resolveBlock(fileSetExtent.Location)
	if err != nil {
		return nil, err
	}
	fsdBuf := make([]byte, v.blockSize)
	if err := sparse.ReadFull(stream, fsdBuf, int64(fsdBlock)*int64(v.blockSize)); err != nil && err != io.ErrUnexpectedEOF {
		return nil, diskerr.New(diskerr.ReadError, "udf", "file set descriptor", err)
	}
	if _, err := validateTag(fsdBuf, tagFileSet); err != nil {
		return nil, err
	}
	v.rootICB = parseLongAD(fsdBuf[400:416]).Location
	return v, nil
}

func parseLongAD(b []byte) LongAD {
	return LongAD{
		Length: bytesx.U32LE(b[0:4]),
		Location: LBAddr{
			Block:        bytesx.U32LE(b[4:8]),
			PartitionRef: bytesx.U16LE(b[8:10]),
		},
	}
}

// resolveBlock converts a logical (partition-relative) block address into
// an absolute block number on the underlying stream. Only type 1
// (physical) maps are followed; every type 2 map (metadata, sparable or
// virtual) is mapped directly onto the volume's primary physical
// partition, or onto the raw block number when there is none, and its
// metadata file, sparing table or virtual allocation table is not consulted
// (see DESIGN.md).
func (v *volume) resolveBlock(addr LBAddr) (uint32, error) {
	ref := int(addr.PartitionRef)
	if ref < 0 || ref >= len(v.partitionMaps) {
		return 0, diskerr.New(diskerr.CorruptStructure, "udf", "partition reference out of range", nil)
	}
	pm := v.partitionMaps[ref]
	switch pm.kind {
	case partitionMapType1:
		return v.partitionStarts[pm.partitionNumber] + addr.Block, nil
	default:
		// Metadata/virtual/sparable: resolving through the metadata file's
		// own extents or a sparing/virtual-allocation table is out of
		// scope (see DESIGN.md); fall back to the volume's primary
		// physical partition.
		if v.havePrimary {
			return v.partitionStarts[v.primaryPartition] + addr.Block, nil
		}
		return addr.Block, nil
	}
}
