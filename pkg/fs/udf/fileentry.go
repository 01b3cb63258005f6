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
	"time"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

// icbTag is the 20-byte Information Control Block tag embedded at the head
// of every file entry (ECMA-167 4/14.6).
type icbTag struct {
	FileType uint8
	Parent   LBAddr
	Flags    uint16
}

func parseICBTag(b []byte) icbTag {
	return icbTag{
		FileType: b[11],
		Parent:   LBAddr{Block: bytesx.U32LE(b[12:16]), PartitionRef: bytesx.U16LE(b[16:18])},
		Flags:    bytesx.U16LE(b[18:20]),
	}
}

// allocType reports which of the four allocation-descriptor encodings
// (ECMA-167 4/14.6.8) an ICB's flags select.
func (t icbTag) allocType() int { return int(t.Flags & 0x7) }

// fileEntry is the decoded subset of a FileEntry or ExtendedFileEntry
// common to both (ECMA-167 4/14.9, 4/14.17) needed to resolve content and
// report metadata.
type fileEntry struct {
	icb               icbTag
	uid, gid          uint32
	permissions       uint32
	informationLength uint64
	modificationTime  time.Time
	accessTime        time.Time
	extAttrLength     uint32
	allocDescLength   uint32
	fixedSize         int // offset where extended attributes begin
	raw               []byte
}

func parseFileEntry(b []byte) (fileEntry, error) {
	tag, err := parseTag(b)
	if err != nil {
		return fileEntry{}, err
	}
	switch tag.Identifier {
	case tagFile:
		if len(b) < 176 {
			return fileEntry{}, diskerr.New(diskerr.Truncated, "udf", "file entry", nil)
		}
		return fileEntry{
			icb:               parseICBTag(b[16:36]),
			uid:               bytesx.U32LE(b[36:40]),
			gid:               bytesx.U32LE(b[40:44]),
			permissions:       bytesx.U32LE(b[44:48]),
			informationLength: bytesx.U64LE(b[56:64]),
			accessTime:        parseTimestamp(b[72:84]),
			modificationTime:  parseTimestamp(b[84:96]),
			extAttrLength:     bytesx.U32LE(b[168:172]),
			allocDescLength:   bytesx.U32LE(b[172:176]),
			fixedSize:         176,
			raw:               b,
		}, nil
	case tagExtendedFile:
		if len(b) < 216 {
			return fileEntry{}, diskerr.New(diskerr.Truncated, "udf", "extended file entry", nil)
		}
		return fileEntry{
			icb:               parseICBTag(b[16:36]),
			uid:               bytesx.U32LE(b[36:40]),
			gid:               bytesx.U32LE(b[40:44]),
			permissions:       bytesx.U32LE(b[44:48]),
			informationLength: bytesx.U64LE(b[56:64]),
			accessTime:        parseTimestamp(b[80:92]),
			modificationTime:  parseTimestamp(b[92:104]),
			extAttrLength:     bytesx.U32LE(b[208:212]),
			allocDescLength:   bytesx.U32LE(b[212:216]),
			fixedSize:         216,
			raw:               b,
		}, nil
	default:
		return fileEntry{}, diskerr.New(diskerr.BadMagic, "udf", "file entry tag", nil)
	}
}

func (f fileEntry) isDirectory() bool { return f.icb.FileType == icbFileTypeDirectory }

const (
	icbFileTypeDirectory = 4
	icbFileTypeFile      = 5
)

// allocationDescriptors decodes the file entry's allocation-descriptor
// array according to its ICB's encoding, returning each run as an absolute
// block plus byte length. Inline (type 3) entries return no descriptors;
// callers read embeddedData instead.
func (f fileEntry) allocationDescriptors(v *volume, defaultRef uint16) ([]extentRun, error) {
	if f.allocDescLength == 0 {
		return nil, nil
	}
	start := f.fixedSize + int(f.extAttrLength)
	end := start + int(f.allocDescLength)
	if start < 0 || end > len(f.raw) {
		return nil, diskerr.New(diskerr.Truncated, "udf", "allocation descriptors", nil)
	}
	data := f.raw[start:end]

	switch f.icb.allocType() {
	case allocShortAD:
		n := len(data) / 8
		out := make([]extentRun, 0, n)
		for i := 0; i < n; i++ {
			rec := data[i*8 : i*8+8]
			length := bytesx.U32LE(rec[0:4]) &^ (0x3 << 30)
			position := bytesx.U32LE(rec[4:8])
			block, err := v.resolveBlock(LBAddr{Block: position, PartitionRef: defaultRef})
			if err != nil {
				return nil, err
			}
			out = append(out, extentRun{block: block, length: length})
		}
		return out, nil

	case allocLongAD:
		n := len(data) / 16
		out := make([]extentRun, 0, n)
		for i := 0; i < n; i++ {
			rec := data[i*16 : i*16+16]
			lad := parseLongAD(rec)
			block, err := v.resolveBlock(lad.Location)
			if err != nil {
				return nil, err
			}
			out = append(out, extentRun{block: block, length: lad.Length &^ (0x3 << 30)})
		}
		return out, nil

	case allocExtAD:
		n := len(data) / 20
		out := make([]extentRun, 0, n)
		for i := 0; i < n; i++ {
			rec := data[i*20 : i*20+20]
			lad := parseLongAD(rec[4:20])
			block, err := v.resolveBlock(lad.Location)
			if err != nil {
				return nil, err
			}
			out = append(out, extentRun{block: block, length: lad.Length &^ (0x3 << 30)})
		}
		return out, nil

	case allocInline:
		return nil, nil

	default:
		return nil, diskerr.New(diskerr.UnsupportedFeature, "udf", "allocation descriptor type", nil)
	}
}

// embeddedData returns a file entry's inline content (allocation type 3):
// the bytes stored directly after the extended attributes, in place of any
// allocation descriptor.
func (f fileEntry) embeddedData() []byte {
	start := f.fixedSize + int(f.extAttrLength)
	end := start + int(f.allocDescLength)
	if start < 0 || end > len(f.raw) || f.icb.allocType() != allocInline {
		return nil
	}
	return f.raw[start:end]
}

type extentRun struct {
	block  uint32
	length uint32
}

// parseTimestamp converts a 12-byte UDF timestamp (ECMA-167 1/7.3) to UTC,
// ignoring its embedded timezone offset the same way spec.md's other
// readers normalize volume timestamps to UTC.
func parseTimestamp(b []byte) time.Time {
	year := int(bytesx.U16LE(b[2:4]))
	if year == 0 {
		return time.Time{}
	}
	month, day := int(b[4]), int(b[5])
	hour, minute, second := int(b[6]), int(b[7]), int(b[8])
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}
