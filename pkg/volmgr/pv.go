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

// Package volmgr parses a stacked logical-volume manager's on-disk layout:
// a physical-volume header followed by a text metadata document describing
// volume groups, physical volumes, logical volumes and their segments
// (spec.md §4.4).
package volmgr

import (
	"fmt"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/google/uuid"
)

const labelSector = 512 // the PV header sits in the sector following the label

// DiskArea is an (offset, size) pair in bytes, used for both the data area
// and the metadata area a PV header advertises.
type DiskArea struct {
	Offset uint64
	Size   uint64 // 0 means "extends to the end of the device"
}

// PVHeader is the physical-volume header: a 16-byte UUID, the device size,
// and two null-terminated lists of disk areas (data, then metadata), per
// spec.md §4.4.
type PVHeader struct {
	UUID          uuid.UUID
	DeviceSize    uint64
	DataAreas     []DiskArea
	MetadataAreas []DiskArea
}

// ParsePVHeader decodes the PV header starting at the beginning of data.
// Each DiskArea list is terminated by a zero-offset/zero-size entry.
func ParsePVHeader(data []byte) (*PVHeader, error) {
	if len(data) < 16+8 {
		return nil, diskerr.New(diskerr.Truncated, "volmgr", "PV header", fmt.Errorf("need at least 24 bytes, got %d", len(data)))
	}

	h := &PVHeader{
		UUID:       uuid.UUID(data[0:16]),
		DeviceSize: bytesx.U64LE(data[16:24]),
	}

	off := 24
	readAreas := func() ([]DiskArea, error) {
		var areas []DiskArea
		for {
			if off+16 > len(data) {
				return nil, diskerr.New(diskerr.Truncated, "volmgr", "disk area list", nil)
			}
			area := DiskArea{
				Offset: bytesx.U64LE(data[off : off+8]),
				Size:   bytesx.U64LE(data[off+8 : off+16]),
			}
			off += 16
			if area.Offset == 0 && area.Size == 0 {
				return areas, nil
			}
			areas = append(areas, area)
		}
	}

	dataAreas, err := readAreas()
	if err != nil {
		return nil, err
	}
	metaAreas, err := readAreas()
	if err != nil {
		return nil, err
	}
	h.DataAreas = dataAreas
	h.MetadataAreas = metaAreas
	return h, nil
}

// ReadPVHeader reads and parses the PV header out of a partition-level
// stream, at the fixed offset following the label sector.
func ReadPVHeader(pv sparse.Stream) (*PVHeader, error) {
	buf := make([]byte, 512)
	if err := sparse.ReadFull(pv, buf, labelSector); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "volmgr", "PV header sector", err)
	}
	return ParsePVHeader(buf)
}
