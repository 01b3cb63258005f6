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

package ntfs

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	indexEntryFlagSubnode = 0x0001
	indexEntryFlagLast    = 0x0002

	indexNodeFlagHasChildren = 0x01

	fileNameAttrDirBit = 0x10000000 // FILE_ATTRIBUTE_DUP_FILE_NAME_INDEX_PRESENT

	indexBlockMagic = "INDX"
)

// FileNameAttr is a decoded $FILE_NAME attribute value, used both as an
// MFT attribute and as an index-entry key (spec.md §4.5.2).
type FileNameAttr struct {
	ParentRef uint64
	Flags     uint32
	RealSize  uint64
	AllocSize uint64
	Name      string
	Namespace byte
}

func (f FileNameAttr) IsDirectory() bool {
	return f.Flags&fileNameAttrDirBit != 0
}

// Hidden and System read the DOS attribute bits that $FILE_NAME duplicates
// from $STANDARD_INFORMATION, letting directory enumeration filter without
// a second record read per child.
func (f FileNameAttr) Hidden() bool { return f.Flags&dosHidden != 0 }
func (f FileNameAttr) System() bool { return f.Flags&dosSystem != 0 }

const fileNameFixedSize = 66

func parseFileNameAttr(b []byte) (FileNameAttr, error) {
	if len(b) < fileNameFixedSize {
		return FileNameAttr{}, diskerr.New(diskerr.Truncated, "ntfs", "file_name attribute", nil)
	}
	f := FileNameAttr{
		ParentRef: bytesx.U64LE(b[0:8]),
		AllocSize: bytesx.U64LE(b[40:48]),
		RealSize:  bytesx.U64LE(b[48:56]),
		Flags:     bytesx.U32LE(b[56:60]),
	}
	nameLen := int(b[64])
	f.Namespace = b[65]
	end := fileNameFixedSize + nameLen*2
	if end > len(b) {
		return FileNameAttr{}, diskerr.New(diskerr.Truncated, "ntfs", "file_name name", nil)
	}
	f.Name = bytesx.UTF16LEString(b[fileNameFixedSize:end])
	return f, nil
}

// indexEntry is one $FILE_NAME-keyed directory-index entry: a reference to
// the named file plus, for interior nodes, the child index block to
// descend into before/after it in key order.
type indexEntry struct {
	FileRef    uint64
	Key        FileNameAttr
	HasKey     bool
	HasSubnode bool
	SubnodeVCN uint64
}

// parseIndexEntries walks the entry sequence occupying b, stopping at the
// terminal "last entry" marker (spec.md §4.5.2 index B+-tree).
func parseIndexEntries(b []byte) ([]indexEntry, error) {
	var out []indexEntry
	pos := 0
	for pos+16 <= len(b) {
		entryLen := bytesx.U16LE(b[pos+8 : pos+10])
		if entryLen < 16 || pos+int(entryLen) > len(b) {
			break
		}
		rec := b[pos : pos+int(entryLen)]
		flags := bytesx.U16LE(rec[12:14])
		e := indexEntry{
			FileRef:    bytesx.U64LE(rec[0:8]),
			HasSubnode: flags&indexEntryFlagSubnode != 0,
		}
		if flags&indexEntryFlagLast == 0 {
			keyLen := bytesx.U16LE(rec[10:12])
			keyEnd := 16 + int(keyLen)
			if keyEnd > len(rec) {
				return nil, diskerr.New(diskerr.Truncated, "ntfs", "index entry key", nil)
			}
			key, err := parseFileNameAttr(rec[16:keyEnd])
			if err != nil {
				return nil, err
			}
			e.Key = key
			e.HasKey = true
		}
		if e.HasSubnode {
			if len(rec) < 8 {
				return nil, diskerr.New(diskerr.Truncated, "ntfs", "index entry subnode vcn", nil)
			}
			e.SubnodeVCN = bytesx.U64LE(rec[len(rec)-8:])
		}
		out = append(out, e)
		pos += int(entryLen)
		if flags&indexEntryFlagLast != 0 {
			break
		}
	}
	return out, nil
}

// indexHeader is the 16-byte header preceding every node's entry sequence,
// shared between INDEX_ROOT and each INDEX_ALLOCATION block.
type indexHeader struct {
	EntriesOffset uint32
	IndexLength   uint32
	HasChildren   bool
}

func parseIndexHeader(b []byte) (indexHeader, error) {
	if len(b) < 16 {
		return indexHeader{}, diskerr.New(diskerr.Truncated, "ntfs", "index header", nil)
	}
	return indexHeader{
		EntriesOffset: bytesx.U32LE(b[0:4]),
		IndexLength:   bytesx.U32LE(b[4:8]),
		HasChildren:   b[12]&indexNodeFlagHasChildren != 0,
	}, nil
}

// DirEntryRef pairs a directory-index key with the MFT reference of the
// file it names.
type DirEntryRef struct {
	Ref  uint64
	Name FileNameAttr
}

// walkIndex recursively enumerates every $FILE_NAME key under an
// INDEX_ROOT, descending into INDEX_ALLOCATION blocks (materialized in
// allocContent, one indexBlockSize-sized block per VCN) as needed.
func walkIndex(rootValue []byte, allocContent []byte, indexBlockSize int64, out *[]DirEntryRef) error {
	if len(rootValue) < 16 {
		return diskerr.New(diskerr.Truncated, "ntfs", "index root", nil)
	}
	hdr, err := parseIndexHeader(rootValue[16:])
	if err != nil {
		return err
	}
	entriesStart := 16 + int(hdr.EntriesOffset)
	entriesEnd := 16 + int(hdr.IndexLength)
	if entriesEnd > len(rootValue) {
		entriesEnd = len(rootValue)
	}
	if entriesStart > entriesEnd {
		return nil
	}
	entries, err := parseIndexEntries(rootValue[entriesStart:entriesEnd])
	if err != nil {
		return err
	}
	return walkEntries(entries, allocContent, indexBlockSize, out)
}

func walkEntries(entries []indexEntry, allocContent []byte, indexBlockSize int64, out *[]DirEntryRef) error {
	for _, e := range entries {
		if e.HasSubnode {
			if err := walkIndexBlock(e.SubnodeVCN, allocContent, indexBlockSize, out); err != nil {
				return err
			}
		}
		if e.HasKey {
			*out = append(*out, DirEntryRef{Ref: e.FileRef, Name: e.Key})
		}
	}
	return nil
}

func walkIndexBlock(vcn uint64, allocContent []byte, indexBlockSize int64, out *[]DirEntryRef) error {
	off := int64(vcn) * indexBlockSize
	if off < 0 || off+indexBlockSize > int64(len(allocContent)) {
		return diskerr.New(diskerr.CorruptStructure, "ntfs", "index allocation VCN bounds", nil)
	}
	block := append([]byte(nil), allocContent[off:off+indexBlockSize]...)
	if len(block) < 24 || string(block[0:4]) != indexBlockMagic {
		return diskerr.New(diskerr.BadMagic, "ntfs", "index allocation block magic", nil)
	}
	if err := applyFixups(block); err != nil {
		return err
	}
	hdr, err := parseIndexHeader(block[24:])
	if err != nil {
		return err
	}
	entriesStart := 24 + int(hdr.EntriesOffset)
	entriesEnd := 24 + int(hdr.IndexLength)
	if entriesEnd > len(block) {
		entriesEnd = len(block)
	}
	if entriesStart > entriesEnd {
		return nil
	}
	entries, err := parseIndexEntries(block[entriesStart:entriesEnd])
	if err != nil {
		return err
	}
	return walkEntries(entries, allocContent, indexBlockSize, out)
}
