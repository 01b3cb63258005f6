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

// Package udf reads UDF (ECMA-167 / ISO 13346) volumes: the anchor volume
// descriptor pointer, the main volume descriptor sequence, partition maps,
// and the file-set/file-entry/file-identifier chain that makes up the
// directory tree.
package udf

const (
	// SectorSize is the logical block size assumed until the logical
	// volume descriptor overrides it.
	SectorSize = 2048

	vrsStart = 16 * SectorSize

	stdIdentBEA01 = "BEA01"
	stdIdentNSR02 = "NSR02"
	stdIdentNSR03 = "NSR03"
	stdIdentTEA01 = "TEA01"
)

// Descriptor tag identifiers (ECMA-167 3/7.2, 4/7).
const (
	tagPrimaryVolume    = 1
	tagAnchorVolume     = 2
	tagPartition        = 5
	tagLogicalVolume    = 6
	tagUnallocatedSpace = 7
	tagTerminating      = 8
	tagFileSet          = 256
	tagFileIdentifier   = 257
	tagFile             = 261
	tagExtendedFile     = 266
)

// File-identifier characteristic bits (ECMA-167 4/14.4.3).
const (
	fileCharHidden    = 0x01
	fileCharDirectory = 0x02
	fileCharDeleted   = 0x04
	fileCharParent    = 0x08
)

// ICB allocation-descriptor type, packed in the low 3 bits of ICBTag.Flags.
const (
	allocShortAD = 0
	allocLongAD  = 1
	allocExtAD   = 2
	allocInline  = 3
)

// Partition map kinds (ECMA-167 3/10.7).
const (
	partitionMapType1 = 1
	partitionMapType2 = 2
)

// Tag is the 16-byte descriptor header every UDF structure begins with
// (ECMA-167 3/7.2).
type Tag struct {
	Identifier   uint16
	Version      uint16
	Checksum     uint8
	SerialNumber uint16
	CRC          uint16
	CRCLength    uint16
	Location     uint32
}

// ExtentAD is a (length, location) pair addressing an extent by absolute
// sector (ECMA-167 3/7.1).
type ExtentAD struct {
	Length   uint32
	Location uint32
}

// LBAddr is a logical block number relative to a referenced partition
// (ECMA-167 4/7.1).
type LBAddr struct {
	Block        uint32
	PartitionRef uint16
}

// ShortAD is an 8-byte allocation descriptor: an extent length plus a
// block position within the file entry's own partition (ECMA-167 4/14.14.1).
type ShortAD struct {
	Length   uint32
	Position uint32
}

// LongAD is a 16-byte allocation descriptor: an extent length plus a full
// partition-relative block address (ECMA-167 4/14.14.2).
type LongAD struct {
	Length   uint32
	Location LBAddr
}
