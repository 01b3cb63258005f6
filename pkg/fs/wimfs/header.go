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

// Package wimfs reads WIM (Windows Imaging Format) archives: the file
// header, the content-addressed lookup table, per-image metadata streams,
// and the directory-entry tree each metadata stream roots (spec.md §4.5.7).
package wimfs

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	headerTag     = "MSWIM\x00\x00\x00"
	minHeaderSize = 148

	flagCompressionMask = 0x0003c000
	flagXpress          = 0x00020000
	flagLZX             = 0x00040000
)

// Header is the fixed-size WIM file header (spec.md §4.5.7).
type Header struct {
	Version         uint32
	Flags           uint32
	ChunkSize       uint32
	GUID            [16]byte
	PartNumber      uint16
	TotalParts      uint16
	ImageCount      uint32
	LookupTable     ResourceHeader
	XMLData         ResourceHeader
	BootMetadata    ResourceHeader
	BootIndex       uint32
	Integrity       ResourceHeader
}

// Compression reports which chunk codec this archive's resources use.
// No compression bit set means chunks are stored verbatim.
func (h Header) Compression() (xpress, lzx bool) {
	return h.Flags&flagXpress != 0, h.Flags&flagLZX != 0
}

// ParseHeader validates the tag and decodes the fixed header fields.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < minHeaderSize {
		return Header{}, diskerr.New(diskerr.Truncated, "wimfs", "header", nil)
	}
	if string(b[0:8]) != headerTag {
		return Header{}, diskerr.New(diskerr.BadMagic, "wimfs", "header tag", nil)
	}
	headerSize := bytesx.U32LE(b[8:])
	if headerSize < minHeaderSize {
		return Header{}, diskerr.New(diskerr.CorruptStructure, "wimfs", "header size too small", nil)
	}

	var h Header
	h.Version = bytesx.U32LE(b[12:])
	h.Flags = bytesx.U32LE(b[16:])
	h.ChunkSize = bytesx.U32LE(b[20:])
	copy(h.GUID[:], b[24:40])
	h.PartNumber = bytesx.U16LE(b[40:])
	h.TotalParts = bytesx.U16LE(b[42:])
	h.ImageCount = bytesx.U32LE(b[44:])

	h.LookupTable = parseResourceHeader(b[48:72])
	h.XMLData = parseResourceHeader(b[72:96])
	h.BootMetadata = parseResourceHeader(b[96:120])
	h.BootIndex = bytesx.U32LE(b[120:])
	if len(b) >= 152 {
		h.Integrity = parseResourceHeader(b[128:152])
	}
	return h, nil
}
