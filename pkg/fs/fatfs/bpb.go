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

// Package fatfs reads FAT12/16/32 volumes: the BIOS parameter block,
// cluster-chain traversal, and 8.3 + long-file-name directory entries.
package fatfs

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

type Variant int

const (
	FAT12 Variant = iota
	FAT16
	FAT32
)

// BPB is the subset of the BIOS Parameter Block this reader needs.
type BPB struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors      uint32
	SectorsPerFAT     uint32 // FAT12/16: from bpb16; FAT32: from bpb32
	RootCluster       uint32 // FAT32 only
	Variant           Variant
}

func (b *BPB) ClusterSize() int64 { return int64(b.BytesPerSector) * int64(b.SectorsPerCluster) }

func (b *BPB) RootDirSectors() uint32 {
	return (uint32(b.RootEntryCount)*32 + uint32(b.BytesPerSector) - 1) / uint32(b.BytesPerSector)
}

func (b *BPB) FirstDataSector() uint32 {
	return uint32(b.ReservedSectors) + uint32(b.NumFATs)*b.SectorsPerFAT + b.RootDirSectors()
}

func (b *BPB) RootDirSector() uint32 {
	return uint32(b.ReservedSectors) + uint32(b.NumFATs)*b.SectorsPerFAT
}

// ClusterToSector converts a cluster number (first data cluster is 2) to an
// absolute sector index.
func (b *BPB) ClusterToSector(cluster uint32) uint32 {
	return b.FirstDataSector() + (cluster-2)*uint32(b.SectorsPerCluster)
}

// ParseBPB decodes the boot sector and classifies the variant by cluster
// count (spec.md §4.5.6): <4085 => FAT12, <65525 => FAT16, else FAT32.
func ParseBPB(sector []byte) (*BPB, error) {
	if len(sector) < 512 {
		return nil, diskerr.New(diskerr.Truncated, "fat", "boot sector", nil)
	}
	b := &BPB{
		BytesPerSector:    bytesx.U16LE(sector[11:]),
		SectorsPerCluster: sector[13],
		ReservedSectors:   bytesx.U16LE(sector[14:]),
		NumFATs:           sector[16],
		RootEntryCount:    bytesx.U16LE(sector[17:]),
	}
	totalSectors16 := bytesx.U16LE(sector[19:])
	totalSectors32 := bytesx.U32LE(sector[32:])
	if totalSectors16 != 0 {
		b.TotalSectors = uint32(totalSectors16)
	} else {
		b.TotalSectors = totalSectors32
	}

	sectorsPerFAT16 := bytesx.U16LE(sector[22:])
	if sectorsPerFAT16 != 0 {
		b.SectorsPerFAT = uint32(sectorsPerFAT16)
	} else {
		b.SectorsPerFAT = bytesx.U32LE(sector[36:]) // bpb32 BPB_FATSz32
		b.RootCluster = bytesx.U32LE(sector[44:])
	}
	if b.BytesPerSector == 0 || b.SectorsPerCluster == 0 {
		return nil, diskerr.New(diskerr.CorruptStructure, "fat", "zero geometry", nil)
	}

	dataSectors := b.TotalSectors - (uint32(b.ReservedSectors) + uint32(b.NumFATs)*b.SectorsPerFAT + b.RootDirSectors())
	clusterCount := dataSectors / uint32(b.SectorsPerCluster)
	switch {
	case clusterCount < 4085:
		b.Variant = FAT12
	case clusterCount < 65525:
		b.Variant = FAT16
	default:
		b.Variant = FAT32
	}
	return b, nil
}
