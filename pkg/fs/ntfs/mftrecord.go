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

const (
	recordMagic = "FILE"

	fileRecordFlagInUse     = 0x0001
	fileRecordFlagDirectory = 0x0002

	sectorStride = 512
)

// MFTRecord is one parsed, fix-up-applied Master File Table entry.
type MFTRecord struct {
	SequenceNumber uint16
	HardLinkCount  uint16
	Flags          uint16
	BaseRecordRef  uint64
	RecordNumber   uint32
	Attributes     []Attribute
}

func (r MFTRecord) InUse() bool     { return r.Flags&fileRecordFlagInUse != 0 }
func (r MFTRecord) IsDirectory() bool { return r.Flags&fileRecordFlagDirectory != 0 }

// applyFixups validates and reverses the update-sequence-array trick NTFS
// uses to detect torn writes: the true last two bytes of every 512-byte
// stride are saved in the USA and replaced on disk with the record's USN;
// this restores them and confirms every stride actually carried that USN.
func applyFixups(record []byte) error {
	if len(record) < 8 {
		return diskerr.New(diskerr.Truncated, "ntfs", "record header", nil)
	}
	usaOffset := bytesx.U16LE(record[4:6])
	usaCount := bytesx.U16LE(record[6:8])
	if usaCount == 0 {
		return nil
	}
	usaEnd := int(usaOffset) + int(usaCount)*2
	if usaEnd > len(record) {
		return diskerr.New(diskerr.CorruptStructure, "ntfs", "update sequence array bounds", nil)
	}
	usn := bytesx.U16LE(record[usaOffset : usaOffset+2])
	strides := int(usaCount) - 1
	for i := 0; i < strides; i++ {
		strideEnd := (i+1)*sectorStride - 2
		if strideEnd+2 > len(record) {
			break
		}
		got := bytesx.U16LE(record[strideEnd : strideEnd+2])
		if got != usn {
			return diskerr.New(diskerr.ChecksumMismatch, "ntfs", "update sequence fix-up", nil)
		}
		saved := record[int(usaOffset)+2+i*2 : int(usaOffset)+4+i*2]
		copy(record[strideEnd:strideEnd+2], saved)
	}
	return nil
}

// ParseMFTRecord applies fix-ups to a copy of record and decodes its header
// and attribute list.
func ParseMFTRecord(record []byte) (MFTRecord, error) {
	if len(record) < 48 || string(record[0:4]) != recordMagic {
		return MFTRecord{}, diskerr.New(diskerr.BadMagic, "ntfs", "MFT record magic", nil)
	}
	buf := append([]byte(nil), record...)
	if err := applyFixups(buf); err != nil {
		return MFTRecord{}, err
	}

	r := MFTRecord{
		SequenceNumber: bytesx.U16LE(buf[16:18]),
		HardLinkCount:  bytesx.U16LE(buf[18:20]),
		Flags:          bytesx.U16LE(buf[22:24]),
		BaseRecordRef:  bytesx.U64LE(buf[32:40]),
	}
	if len(buf) >= 48 {
		r.RecordNumber = bytesx.U32LE(buf[44:48])
	}

	firstAttrOffset := bytesx.U16LE(buf[20:22])
	usedSize := bytesx.U32LE(buf[24:28])
	end := int(usedSize)
	if end > len(buf) {
		end = len(buf)
	}

	pos := int(firstAttrOffset)
	for pos+8 <= end {
		attrType := bytesx.U32LE(buf[pos:])
		if attrType == 0xFFFFFFFF {
			break
		}
		length := bytesx.U32LE(buf[pos+4:])
		if length == 0 || pos+int(length) > len(buf) {
			break
		}
		attr, err := parseAttribute(buf[pos : pos+int(length)])
		if err != nil {
			return MFTRecord{}, err
		}
		r.Attributes = append(r.Attributes, attr)
		pos += int(length)
	}
	return r, nil
}

// Find returns the first attribute of the given type with the given name
// ("" for the unnamed/default attribute of that type).
func (r MFTRecord) Find(attrType uint32, name string) (Attribute, bool) {
	for _, a := range r.Attributes {
		if a.Type == attrType && a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// FindAll returns every attribute of the given type, in on-disk order.
func (r MFTRecord) FindAll(attrType uint32) []Attribute {
	var out []Attribute
	for _, a := range r.Attributes {
		if a.Type == attrType {
			out = append(out, a)
		}
	}
	return out
}
