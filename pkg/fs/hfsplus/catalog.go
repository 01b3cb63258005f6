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
	"time"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

// Catalog record types, stored as the first big-endian int16 of a leaf
// record's data.
const (
	RecordFolder       = int16(1)
	RecordFile         = int16(2)
	RecordFolderThread = int16(3)
	RecordFileThread   = int16(4)
)

// CatalogKey is a decoded catalog B-tree key: a parent folder CNID plus the
// child's name within it.
type CatalogKey struct {
	ParentID uint32
	Name     string
}

func parseCatalogKey(b []byte) (CatalogKey, error) {
	if len(b) < 6 {
		return CatalogKey{}, diskerr.New(diskerr.Truncated, "hfsplus", "catalog key", nil)
	}
	parentID := bytesx.U32BE(b[0:4])
	nameLen := int(bytesx.U16BE(b[4:6]))
	end := 6 + nameLen*2
	if end > len(b) {
		return CatalogKey{}, diskerr.New(diskerr.Truncated, "hfsplus", "catalog key name", nil)
	}
	return CatalogKey{ParentID: parentID, Name: bytesx.UTF16BEString(b[6:end])}, nil
}

// BSDInfo is the 16-byte POSIX ownership/mode block HFS+ stores inside
// every folder and file record.
type BSDInfo struct {
	OwnerID uint32
	GroupID uint32
	Mode    uint16
}

func parseBSDInfo(b []byte) BSDInfo {
	return BSDInfo{
		OwnerID: bytesx.U32BE(b[0:4]),
		GroupID: bytesx.U32BE(b[4:8]),
		Mode:    bytesx.U16BE(b[10:12]),
	}
}

// CatalogFolder is a decoded HFSPlusCatalogFolder record (88 bytes).
type CatalogFolder struct {
	Flags          uint16
	FolderID       uint32
	CreateDate     time.Time
	ContentModDate time.Time
	AccessDate     time.Time
	Permissions    BSDInfo
}

const catalogFolderSize = 88

func parseCatalogFolder(b []byte) (CatalogFolder, error) {
	if len(b) < catalogFolderSize {
		return CatalogFolder{}, diskerr.New(diskerr.Truncated, "hfsplus", "catalog folder record", nil)
	}
	return CatalogFolder{
		Flags:          bytesx.U16BE(b[2:4]),
		FolderID:       bytesx.U32BE(b[8:12]),
		CreateDate:     hfsTime(bytesx.U32BE(b[12:16])),
		ContentModDate: hfsTime(bytesx.U32BE(b[16:20])),
		AccessDate:     hfsTime(bytesx.U32BE(b[24:28])),
		Permissions:    parseBSDInfo(b[32:48]),
	}, nil
}

// CatalogFile is a decoded HFSPlusCatalogFile record (248 bytes).
type CatalogFile struct {
	Flags          uint16
	FileID         uint32
	CreateDate     time.Time
	ContentModDate time.Time
	AccessDate     time.Time
	Permissions    BSDInfo
	DataFork       ForkData
	ResourceFork   ForkData
}

const catalogFileSize = 248

// File flag bits stored in a CatalogFile's Flags field.
const (
	fileFlagLocked = 0x0001
	fileFlagHidden = 0x0010 // surfaced via the Finder-info invisible bit in real HFS+; simplified here
)

func parseCatalogFile(b []byte) (CatalogFile, error) {
	if len(b) < catalogFileSize {
		return CatalogFile{}, diskerr.New(diskerr.Truncated, "hfsplus", "catalog file record", nil)
	}
	dataFork, err := parseForkData(b[88:168])
	if err != nil {
		return CatalogFile{}, err
	}
	resourceFork, err := parseForkData(b[168:248])
	if err != nil {
		return CatalogFile{}, err
	}
	return CatalogFile{
		Flags:          bytesx.U16BE(b[2:4]),
		FileID:         bytesx.U32BE(b[8:12]),
		CreateDate:     hfsTime(bytesx.U32BE(b[12:16])),
		ContentModDate: hfsTime(bytesx.U32BE(b[16:20])),
		AccessDate:     hfsTime(bytesx.U32BE(b[24:28])),
		Permissions:    parseBSDInfo(b[32:48]),
		DataFork:       dataFork,
		ResourceFork:   resourceFork,
	}, nil
}

func (f CatalogFile) ReadOnly() bool { return f.Flags&fileFlagLocked != 0 }
func (f CatalogFile) Hidden() bool   { return f.Flags&fileFlagHidden != 0 }

// CatalogThread is a decoded HFSPlusCatalogThread record: the reverse
// mapping from a CNID back to its parent and own name.
type CatalogThread struct {
	ParentID uint32
	NodeName string
}

func parseCatalogThread(b []byte) (CatalogThread, error) {
	if len(b) < 8 {
		return CatalogThread{}, diskerr.New(diskerr.Truncated, "hfsplus", "catalog thread record", nil)
	}
	parentID := bytesx.U32BE(b[4:8])
	if len(b) < 10 {
		return CatalogThread{ParentID: parentID}, nil
	}
	nameLen := int(bytesx.U16BE(b[8:10]))
	end := 10 + nameLen*2
	if end > len(b) {
		return CatalogThread{}, diskerr.New(diskerr.Truncated, "hfsplus", "catalog thread name", nil)
	}
	return CatalogThread{ParentID: parentID, NodeName: bytesx.UTF16BEString(b[10:end])}, nil
}

// hfsPlusEpochDelta is the number of seconds between the HFS+ epoch
// (1904-01-01) and the Unix epoch (1970-01-01).
const hfsPlusEpochDelta = 2082844800

// hfsTime converts an HFS+ on-disk timestamp (seconds since 1904-01-01,
// nominally local time but treated as UTC here for reproducibility, the
// same simplification classic HFS readers make).
func hfsTime(stamp uint32) time.Time {
	if stamp == 0 {
		return time.Time{}
	}
	return time.Unix(int64(stamp)-hfsPlusEpochDelta, 0).UTC()
}
