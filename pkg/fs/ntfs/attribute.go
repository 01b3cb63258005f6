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

package ntfs

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

// Attribute type codes spec.md §4.5.2 names as handled in core.
const (
	AttrStandardInformation uint32 = 0x10
	AttrAttributeList       uint32 = 0x20
	AttrFileName            uint32 = 0x30
	AttrData                uint32 = 0x80
	AttrIndexRoot           uint32 = 0x90
	AttrIndexAllocation     uint32 = 0xA0
	AttrBitmap              uint32 = 0xB0
	AttrReparsePoint        uint32 = 0xC0
)

const attrFlagCompressed = 0x0001

// Attribute is one decoded MFT attribute record, resident or non-resident.
type Attribute struct {
	Type         uint32
	Name         string
	NonResident  bool
	Flags        uint16
	ResidentData []byte
	RunList      []Run
	AllocatedSz  uint64
	RealSize     uint64
	InitSize     uint64
}

func (a Attribute) Compressed() bool { return a.Flags&attrFlagCompressed != 0 }

// parseAttribute decodes a single attribute record (header through its
// resident value or non-resident run-list) from b.
func parseAttribute(b []byte) (Attribute, error) {
	if len(b) < 16 {
		return Attribute{}, diskerr.New(diskerr.Truncated, "ntfs", "attribute header", nil)
	}
	a := Attribute{
		Type:        bytesx.U32LE(b[0:4]),
		NonResident: b[8] != 0,
		Flags:       bytesx.U16LE(b[12:14]),
	}
	nameLen := int(b[9])
	nameOffset := int(bytesx.U16LE(b[10:12]))
	if nameLen > 0 {
		end := nameOffset + nameLen*2
		if end > len(b) {
			return Attribute{}, diskerr.New(diskerr.Truncated, "ntfs", "attribute name", nil)
		}
		a.Name = bytesx.UTF16LEString(b[nameOffset:end])
	}

	if !a.NonResident {
		if len(b) < 24 {
			return Attribute{}, diskerr.New(diskerr.Truncated, "ntfs", "resident attribute header", nil)
		}
		valueLen := bytesx.U32LE(b[16:20])
		valueOffset := bytesx.U16LE(b[20:22])
		end := int(valueOffset) + int(valueLen)
		if end > len(b) {
			return Attribute{}, diskerr.New(diskerr.Truncated, "ntfs", "resident attribute value", nil)
		}
		a.ResidentData = b[valueOffset:end]
		a.RealSize = uint64(valueLen)
		a.AllocatedSz = uint64(valueLen)
		a.InitSize = uint64(valueLen)
		return a, nil
	}

	if len(b) < 64 {
		return Attribute{}, diskerr.New(diskerr.Truncated, "ntfs", "non-resident attribute header", nil)
	}
	a.AllocatedSz = bytesx.U64LE(b[40:48])
	a.RealSize = bytesx.U64LE(b[48:56])
	a.InitSize = bytesx.U64LE(b[56:64])
	runOffset := bytesx.U16LE(b[32:34])
	if int(runOffset) > len(b) {
		return Attribute{}, diskerr.New(diskerr.Truncated, "ntfs", "run-list offset", nil)
	}
	runs, err := parseRunList(b[runOffset:])
	if err != nil {
		return Attribute{}, err
	}
	a.RunList = runs
	return a, nil
}
