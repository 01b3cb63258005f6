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

const (
	volumeHeaderOffset = 1024
	volumeHeaderSize   = 512

	SignatureHFSPlus uint16 = 0x482B // "H+"
	SignatureHFSX    uint16 = 0x4858 // "HX"
)

// VolumeHeader is the decoded subset of HFS+'s 512-byte volume header.
type VolumeHeader struct {
	Signature     uint16
	Version       uint16
	BlockSize     uint32
	TotalBlocks   uint32
	NextCatalogID uint32
	Allocation    ForkData
	Extents       ForkData
	Catalog       ForkData
	Attributes    ForkData
}

// ParseVolumeHeader decodes the 512-byte volume header, expected to start
// at byte 1024 on the underlying device.
func ParseVolumeHeader(b []byte) (VolumeHeader, error) {
	if len(b) < volumeHeaderSize {
		return VolumeHeader{}, diskerr.New(diskerr.Truncated, "hfsplus", "volume header", nil)
	}
	sig := bytesx.U16BE(b[0:2])
	if sig != SignatureHFSPlus && sig != SignatureHFSX {
		return VolumeHeader{}, diskerr.New(diskerr.BadMagic, "hfsplus", "volume header signature", nil)
	}
	h := VolumeHeader{
		Signature:     sig,
		Version:       bytesx.U16BE(b[2:4]),
		BlockSize:     bytesx.U32BE(b[40:44]),
		TotalBlocks:   bytesx.U32BE(b[44:48]),
		NextCatalogID: bytesx.U32BE(b[64:68]),
	}
	if h.BlockSize == 0 {
		return VolumeHeader{}, diskerr.New(diskerr.CorruptStructure, "hfsplus", "zero allocation block size", nil)
	}

	var err error
	if h.Allocation, err = parseForkData(b[112:192]); err != nil {
		return VolumeHeader{}, err
	}
	if h.Extents, err = parseForkData(b[192:272]); err != nil {
		return VolumeHeader{}, err
	}
	if h.Catalog, err = parseForkData(b[272:352]); err != nil {
		return VolumeHeader{}, err
	}
	if h.Attributes, err = parseForkData(b[352:432]); err != nil {
		return VolumeHeader{}, err
	}
	return h, nil
}

// CaseSensitive always reports true: both the HFS+ and the HFSX
// signatures are treated as case-sensitive at the vfs.Filesystem layer
// (spec.md §4.4's path conventions place HFS+ alongside ext).
func (h VolumeHeader) CaseSensitive() bool { return true }
