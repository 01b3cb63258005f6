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
package partition

import (
	"fmt"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
)

// MBRPartitionEntry is a single 16-byte entry in the MBR's partition table.
// Multi-byte fields are decoded little-endian, per spec.md §4.3.
type MBRPartitionEntry struct {
	BootIndicator uint8
	StartCHS      [3]byte
	Type          MBRType
	EndCHS        [3]byte
	StartLBA      uint32
	TotalSectors  uint32
}

// MBRType is a one-byte MBR partition type ID.
type MBRType uint8

const (
	TypeEmpty         MBRType = 0x00
	TypeFAT12         MBRType = 0x01
	TypeFAT16Small    MBRType = 0x04
	TypeExtendedCHS   MBRType = 0x05
	TypeFAT16         MBRType = 0x06
	TypeNTFSExFAT     MBRType = 0x07
	TypeFAT32CHS      MBRType = 0x0B
	TypeFAT32LBA      MBRType = 0x0C
	TypeFAT16LBA      MBRType = 0x0E
	TypeExtendedLBA   MBRType = 0x0F
	TypeLinuxSwap     MBRType = 0x82
	TypeLinux         MBRType = 0x83
	TypeLinuxLVM      MBRType = 0x8E
	TypeGPTProtective MBRType = 0xEE
	TypeEFISystem     MBRType = 0xEF
)

func (t MBRType) isExtended() bool {
	return t == TypeExtendedCHS || t == TypeExtendedLBA
}

func (t MBRType) String() string {
	switch t {
	case TypeEmpty:
		return "empty"
	case TypeFAT12:
		return "FAT12"
	case TypeFAT16Small:
		return "FAT16 (<32MB)"
	case TypeExtendedCHS, TypeExtendedLBA:
		return "extended"
	case TypeFAT16:
		return "FAT16"
	case TypeNTFSExFAT:
		return "NTFS/exFAT"
	case TypeFAT32CHS, TypeFAT32LBA:
		return "FAT32"
	case TypeFAT16LBA:
		return "FAT16 (LBA)"
	case TypeLinuxSwap:
		return "Linux swap"
	case TypeLinux:
		return "Linux"
	case TypeLinuxLVM:
		return "Linux LVM"
	case TypeGPTProtective:
		return "GPT protective"
	case TypeEFISystem:
		return "EFI system"
	default:
		return fmt.Sprintf("0x%02X", uint8(t))
	}
}

// MBR is the 512-byte Master Boot Record at LBA 0.
type MBR struct {
	Entries   [4]MBRPartitionEntry
	Signature uint16
}

func parseMBREntry(b []byte) MBRPartitionEntry {
	var e MBRPartitionEntry
	e.BootIndicator = b[0x00]
	copy(e.StartCHS[:], b[0x01:0x04])
	e.Type = MBRType(b[0x04])
	copy(e.EndCHS[:], b[0x05:0x08])
	e.StartLBA = bytesx.U32LE(b[0x08:0x0C])
	e.TotalSectors = bytesx.U32LE(b[0x0C:0x10])
	return e
}

// ParseMBR decodes a 512-byte LBA-0 sector, validating the 0x55AA signature
// at offset 510, per spec.md §4.3.
func ParseMBR(data []byte) (*MBR, error) {
	if len(data) != SectorSize {
		return nil, diskerr.New(diskerr.Truncated, "mbr", "sector", fmt.Errorf("expected %d bytes, got %d", SectorSize, len(data)))
	}

	var mbr MBR
	for i := 0; i < 4; i++ {
		off := 0x1BE + i*16
		mbr.Entries[i] = parseMBREntry(data[off : off+16])
	}
	mbr.Signature = bytesx.U16LE(data[0x1FE:0x200])
	if mbr.Signature != 0xAA55 {
		return nil, diskerr.New(diskerr.BadMagic, "mbr", fmt.Sprintf("signature 0x%04X", mbr.Signature), nil)
	}
	return &mbr, nil
}

// ReadMBR parses the MBR on disk and walks any extended-partition chain,
// returning every primary and logical partition as a flat Table.
func ReadMBR(disk sparse.Stream) (*Table, error) {
	sector := make([]byte, SectorSize)
	if err := sparse.ReadFull(disk, sector, 0); err != nil {
		return nil, diskerr.New(diskerr.Truncated, "mbr", "LBA 0", err)
	}

	mbr, err := ParseMBR(sector)
	if err != nil {
		return nil, err
	}

	t := &Table{Scheme: "mbr"}
	num := 1
	for _, e := range mbr.Entries {
		if e.Type == TypeEmpty {
			continue
		}
		if e.Type.isExtended() {
			logicals, err := walkExtended(disk, uint64(e.StartLBA)*SectorSize, uint64(e.StartLBA)*SectorSize, &num)
			if err != nil {
				return nil, err
			}
			t.Partitions = append(t.Partitions, logicals...)
			continue
		}
		t.Partitions = append(t.Partitions, Partition{
			Num:      num,
			Offset:   uint64(e.StartLBA) * SectorSize,
			Size:     uint64(e.TotalSectors) * SectorSize,
			Type:     e.Type.String(),
			Bootable: e.BootIndicator == 0x80,
		})
		num++
	}
	return t, nil
}

// walkExtended follows the linked list of Extended Boot Records starting at
// ebrOffset, each relative to extendedBase, per spec.md §4.3.
func walkExtended(disk sparse.Stream, ebrOffset, extendedBase uint64, num *int) ([]Partition, error) {
	var out []Partition
	for ebrOffset != 0 {
		sector := make([]byte, SectorSize)
		if err := sparse.ReadFull(disk, sector, int64(ebrOffset)); err != nil {
			return nil, diskerr.New(diskerr.Truncated, "mbr", "EBR", err)
		}
		ebr, err := ParseMBR(sector)
		if err != nil {
			return nil, diskerr.New(diskerr.CorruptStructure, "mbr", "EBR signature", err)
		}

		logical := ebr.Entries[0]
		if logical.Type != TypeEmpty {
			out = append(out, Partition{
				Num:      *num,
				Offset:   ebrOffset + uint64(logical.StartLBA)*SectorSize,
				Size:     uint64(logical.TotalSectors) * SectorSize,
				Type:     logical.Type.String(),
				Bootable: logical.BootIndicator == 0x80,
			})
			*num++
		}

		next := ebr.Entries[1]
		if next.Type.isExtended() && next.StartLBA != 0 {
			ebrOffset = extendedBase + uint64(next.StartLBA)*SectorSize
		} else {
			ebrOffset = 0
		}
	}
	return out, nil
}
