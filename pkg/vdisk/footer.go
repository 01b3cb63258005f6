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
package vdisk

import (
	"fmt"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const FooterSize = 512

var footerCookie = [8]byte{'c', 'o', 'n', 'e', 'c', 't', 'i', 'x'}

// Footer is the 512-byte trailer (and, for fixed/dynamic disks, mirror
// header) every classic container variant carries, per spec.md §4.2.
type Footer struct {
	Cookie            [8]byte
	Features          uint32
	FileFormatVersion uint32
	DataOffset        uint64 // 0xFFFFFFFFFFFFFFFF for fixed disks
	Timestamp         uint32
	CreatorApp        [4]byte
	CreatorVersion    uint32
	CreatorHostOS     [4]byte
	OriginalSize      uint64
	CurrentSize       uint64
	DiskGeometry      Geometry
	DiskType          DiskType
	Checksum          uint32
	UniqueID          [16]byte
	SavedState        byte
}

// ParseFooter decodes a 512-byte footer record and validates its cookie and
// checksum. A corrupt tail footer is not itself fatal — callers fall back to
// the mirror footer at the head of the file, per spec.md §4.2.
func ParseFooter(data []byte) (*Footer, error) {
	if len(data) != FooterSize {
		return nil, diskerr.New(diskerr.Truncated, "vdisk", "footer", fmt.Errorf("expected %d bytes, got %d", FooterSize, len(data)))
	}

	var f Footer
	copy(f.Cookie[:], data[0:8])
	if f.Cookie != footerCookie {
		return nil, diskerr.New(diskerr.BadMagic, "vdisk", "footer cookie", nil)
	}

	f.Features = bytesx.U32BE(data[8:12])
	f.FileFormatVersion = bytesx.U32BE(data[12:16])
	f.DataOffset = bytesx.U64BE(data[16:24])
	f.Timestamp = bytesx.U32BE(data[24:28])
	copy(f.CreatorApp[:], data[28:32])
	f.CreatorVersion = bytesx.U32BE(data[32:36])
	copy(f.CreatorHostOS[:], data[36:40])
	f.OriginalSize = bytesx.U64BE(data[40:48])
	f.CurrentSize = bytesx.U64BE(data[48:56])
	f.DiskGeometry = Geometry{
		Cylinders: bytesx.U16BE(data[56:58]),
		Heads:     data[58],
		Sectors:   data[59],
	}
	f.DiskType = DiskType(bytesx.U32BE(data[60:64]))
	f.Checksum = bytesx.U32BE(data[64:68])
	copy(f.UniqueID[:], data[68:84])
	f.SavedState = data[84]

	if got := footerChecksum(data); got != f.Checksum {
		return nil, diskerr.New(diskerr.ChecksumMismatch, "vdisk", fmt.Sprintf("footer checksum: want 0x%08x got 0x%08x", f.Checksum, got), nil)
	}
	return &f, nil
}

// footerChecksum is the footer's own algorithm: a byte-wise one's complement
// sum with the checksum field itself treated as zero.
func footerChecksum(data []byte) uint32 {
	var sum uint32
	for i, b := range data {
		if i >= 64 && i < 68 {
			continue
		}
		sum += uint32(b)
	}
	return ^sum
}
