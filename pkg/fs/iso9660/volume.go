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

// Package iso9660 reads ISO9660 volumes, including Joliet supplementary
// volume descriptors and Rock Ridge system-use extensions.
package iso9660

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	SectorSize      = 2048
	volDescStartLBA = 16

	typePrimary      = 1
	typeSupplementary = 2
	typeTerminator   = 255
)

// VolumeDescriptor is the subset of a primary/supplementary descriptor
// needed to locate the root directory record.
type VolumeDescriptor struct {
	Type          byte
	Joliet        bool
	RootRecord    []byte // the 34-byte root directory record, embedded at a fixed offset
}

// ReadVolumeDescriptors walks the volume-descriptor set starting at sector
// 16, returning the primary descriptor and, if present, the Joliet
// supplementary one (spec.md §4.5.5).
func ReadVolumeDescriptors(data []byte) (primary, joliet *VolumeDescriptor, err error) {
	for lba := volDescStartLBA; ; lba++ {
		off := lba * SectorSize
		if off+SectorSize > len(data) {
			return nil, nil, diskerr.New(diskerr.Truncated, "iso9660", "volume descriptor set", nil)
		}
		sector := data[off : off+SectorSize]
		if string(sector[1:6]) != "CD001" {
			return nil, nil, diskerr.New(diskerr.BadMagic, "iso9660", "volume descriptor", nil)
		}
		vtype := sector[0]
		if vtype == typeTerminator {
			break
		}
		if vtype == typePrimary && primary == nil {
			primary = &VolumeDescriptor{Type: vtype, RootRecord: append([]byte(nil), sector[156:156+34]...)}
		}
		if vtype == typeSupplementary {
			esc := sector[88:120]
			if isJolietEscape(esc) {
				joliet = &VolumeDescriptor{Type: vtype, Joliet: true, RootRecord: append([]byte(nil), sector[156:156+34]...)}
			}
		}
	}
	if primary == nil {
		return nil, nil, diskerr.New(diskerr.CorruptStructure, "iso9660", "no primary volume descriptor", nil)
	}
	return primary, joliet, nil
}

// isJolietEscape matches the three Joliet UCS-2 escape sequences.
func isJolietEscape(esc []byte) bool {
	for _, seq := range [][]byte{{0x25, 0x2F, 0x40}, {0x25, 0x2F, 0x43}, {0x25, 0x2F, 0x45}} {
		if len(esc) >= 3 && esc[0] == seq[0] && esc[1] == seq[1] && esc[2] == seq[2] {
			return true
		}
	}
	return false
}

// DirRecordHeader is the fixed 33-byte prefix of a directory record.
type DirRecordHeader struct {
	Length       uint8
	ExtentLBA    uint32
	DataLength   uint32
	FileFlags    byte
	NameLength   uint8
}

const dirFlagDirectory = 0x02

func parseDirRecordHeader(b []byte) DirRecordHeader {
	return DirRecordHeader{
		Length:     b[0],
		ExtentLBA:  bytesx.U32LE(b[2:]),
		DataLength: bytesx.U32LE(b[10:]),
		FileFlags:  b[25],
		NameLength: b[32],
	}
}
