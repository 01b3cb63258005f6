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

// Package ntfs reads NTFS volumes: the boot sector, the Master File Table
// and its records' fix-ups and attributes, run-list-addressed content, the
// INDEX_ROOT/INDEX_ALLOCATION directory B+-tree, and a fragmentation-aware
// cluster allocator (spec.md §4.5.2).
package ntfs

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const oemID = "NTFS    "

// BootSector is the decoded subset of an NTFS boot sector this reader needs.
type BootSector struct {
	BytesPerSector         uint16
	SectorsPerCluster      uint8
	MFTLCN                 uint64
	MFTMirrLCN             uint64
	ClustersPerMFTRecord   int8
	ClustersPerIndexBlock  int8
	TotalSectors           uint64
	VolumeSerial           uint64
}

// ClusterSize is BytesPerSector * SectorsPerCluster.
func (b BootSector) ClusterSize() int64 {
	return int64(b.BytesPerSector) * int64(b.SectorsPerCluster)
}

// recordSize interprets a "clusters per X record/block" byte: positive
// values count whole clusters, negative values are a power-of-two byte
// count (size = 2^-n), the convention NTFS uses for both MFT records and
// index blocks when they are smaller than one cluster.
func recordSize(clustersPerUnit int8, clusterSize int64) int64 {
	if clustersPerUnit >= 0 {
		return int64(clustersPerUnit) * clusterSize
	}
	return int64(1) << uint(-clustersPerUnit)
}

// MFTRecordSize returns the size in bytes of one MFT record.
func (b BootSector) MFTRecordSize() int64 {
	return recordSize(b.ClustersPerMFTRecord, b.ClusterSize())
}

// IndexBlockSize returns the size in bytes of one INDEX_ALLOCATION block.
func (b BootSector) IndexBlockSize() int64 {
	return recordSize(b.ClustersPerIndexBlock, b.ClusterSize())
}

// ParseBootSector decodes the first 512 bytes of an NTFS volume.
func ParseBootSector(b []byte) (BootSector, error) {
	if len(b) < 512 {
		return BootSector{}, diskerr.New(diskerr.Truncated, "ntfs", "boot sector", nil)
	}
	if string(b[3:11]) != oemID {
		return BootSector{}, diskerr.New(diskerr.BadMagic, "ntfs", "OEM ID", nil)
	}
	bs := BootSector{
		BytesPerSector:        bytesx.U16LE(b[11:13]),
		SectorsPerCluster:     b[13],
		TotalSectors:          bytesx.U64LE(b[40:48]),
		MFTLCN:                bytesx.U64LE(b[48:56]),
		MFTMirrLCN:            bytesx.U64LE(b[56:64]),
		ClustersPerMFTRecord:  int8(b[64]),
		ClustersPerIndexBlock: int8(b[68]),
		VolumeSerial:          bytesx.U64LE(b[72:80]),
	}
	if bs.BytesPerSector == 0 || bs.SectorsPerCluster == 0 {
		return BootSector{}, diskerr.New(diskerr.CorruptStructure, "ntfs", "zero sector/cluster size", nil)
	}
	return bs, nil
}
