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

// Package ext reads ext2/3/4 volumes: superblock, block-group descriptors,
// inodes (extent tree and legacy indirect schemes), and directory records.
package ext

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	superblockOffset = 1024
	superblockSize   = 1024
	magic            = 0xEF53

	RootInode = 2
)

// Incompatible-feature bits this reader understands (spec.md §4.5.1).
const (
	featFileType        = 0x0002
	featExtents         = 0x0040
	feat64Bit           = 0x0080
	featFlexBlockGroups = 0x0200
	featNeedsRecovery   = 0x0004 // ro-compat in real ext4; tracked here per the supported incompat set
)

const supportedIncompat = featFileType | featExtents | feat64Bit | featFlexBlockGroups | featNeedsRecovery

type Superblock struct {
	InodesCount     uint32
	BlocksCountLo   uint32
	BlocksCountHi   uint32
	FirstDataBlock  uint32
	LogBlockSize    uint32
	BlocksPerGroup  uint32
	InodesPerGroup  uint32
	Magic           uint16
	RevLevel        uint32
	FirstIno        uint32
	InodeSize       uint16
	FeatureIncompat uint32
	FeatureCompat   uint32
	FeatureRoCompat uint32
	DescSize        uint16 // 64bit-feature group-descriptor size; 0 => 32
}

func (s *Superblock) BlockSize() int64    { return 1024 << s.LogBlockSize }
func (s *Superblock) BlocksCount() uint64 { return uint64(s.BlocksCountHi)<<32 | uint64(s.BlocksCountLo) }
func (s *Superblock) Has64Bit() bool      { return s.FeatureIncompat&feat64Bit != 0 }
func (s *Superblock) HasExtents() bool    { return s.FeatureIncompat&featExtents != 0 }
func (s *Superblock) HasFileType() bool   { return s.FeatureIncompat&featFileType != 0 }
func (s *Superblock) NeedsRecovery() bool { return s.FeatureIncompat&featNeedsRecovery != 0 }

func (s *Superblock) GroupDescSize() int {
	if s.Has64Bit() && s.DescSize > 32 {
		return int(s.DescSize)
	}
	return 32
}

func (s *Superblock) GroupCount() uint64 {
	bpg := uint64(s.BlocksPerGroup)
	if bpg == 0 {
		return 0
	}
	n := s.BlocksCount() - uint64(s.FirstDataBlock)
	return (n + bpg - 1) / bpg
}

// ParseSuperblock decodes the 1024-byte superblock starting at b[0].
func ParseSuperblock(b []byte) (*Superblock, error) {
	if len(b) < superblockSize {
		return nil, diskerr.New(diskerr.Truncated, "ext", "superblock", nil)
	}
	sb := &Superblock{
		InodesCount:    bytesx.U32LE(b[0:]),
		BlocksCountLo:  bytesx.U32LE(b[4:]),
		FirstDataBlock: bytesx.U32LE(b[20:]),
		LogBlockSize:   bytesx.U32LE(b[24:]),
		BlocksPerGroup: bytesx.U32LE(b[32:]),
		InodesPerGroup: bytesx.U32LE(b[40:]),
		Magic:          bytesx.U16LE(b[56:]),
		RevLevel:       bytesx.U32LE(b[76:]),
	}
	if sb.Magic != magic {
		return nil, diskerr.New(diskerr.BadMagic, "ext", "superblock", nil)
	}
	if sb.RevLevel == 0 {
		return nil, diskerr.New(diskerr.UnsupportedVersion, "ext", "GOOD_OLD_REV unsupported", nil)
	}
	sb.FirstIno = bytesx.U32LE(b[84:])
	sb.InodeSize = bytesx.U16LE(b[88:])
	sb.FeatureCompat = bytesx.U32LE(b[92:])
	sb.FeatureIncompat = bytesx.U32LE(b[96:])
	sb.FeatureRoCompat = bytesx.U32LE(b[100:])
	sb.BlocksCountHi = bytesx.U32LE(b[160:])
	sb.DescSize = bytesx.U16LE(b[254:])

	if sb.FeatureIncompat&^supportedIncompat != 0 {
		return nil, diskerr.New(diskerr.UnsupportedFeature, "ext", "incompatible feature bits", nil)
	}
	if sb.InodeSize == 0 {
		sb.InodeSize = 128
	}
	return sb, nil
}
