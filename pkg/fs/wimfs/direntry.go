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

package wimfs

import (
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const direntryFixedSize = 106

const (
	attrReadOnly  = 0x00000001
	attrHidden    = 0x00000002
	attrSystem    = 0x00000004
	attrDirectory = 0x00000010
	attrReparse   = 0x00000400
)

// AlternateStream is one named data stream attached to a directory entry.
type AlternateStream struct {
	Name string
	Hash [20]byte
}

// DirEntry is a single WIM directory-entry record: metadata plus an offset
// to its own subdirectory's entry stream, if it is a directory
// (spec.md §4.5.7).
type DirEntry struct {
	Attributes     uint32
	SecurityIndex  uint32
	SubdirOffset   uint64
	CreationTime   uint64
	LastAccessTime uint64
	LastWriteTime  uint64
	Hash           [20]byte
	ReparseTag     uint32
	HardLinkID     uint64
	FileName       string
	ShortName      string
	Streams        []AlternateStream
}

func (e DirEntry) IsDir() bool      { return e.Attributes&attrDirectory != 0 }
func (e DirEntry) IsReparse() bool  { return e.Attributes&attrReparse != 0 }
func (e DirEntry) IsHidden() bool   { return e.Attributes&attrHidden != 0 }
func (e DirEntry) IsSystem() bool   { return e.Attributes&attrSystem != 0 }
func (e DirEntry) IsReadOnly() bool { return e.Attributes&attrReadOnly != 0 }

// parseUTF16LEField reads a length-prefixed (byte count, excluding the
// trailing NUL) UTF-16LE string starting at b[0:] and returns the string
// together with the number of bytes it and its terminator occupied.
func parseUTF16LEField(b []byte, byteLen int) (string, int, error) {
	if byteLen == 0 {
		return "", 2, nil // still carries a 2-byte NUL terminator
	}
	total := byteLen + 2
	if total > len(b) {
		return "", 0, diskerr.New(diskerr.Truncated, "wimfs", "directory entry name", nil)
	}
	return bytesx.UTF16LEString(b[:byteLen]), total, nil
}

// ReadDirEntries walks the NUL-terminated (zero-length-record) sequence of
// directory entries starting at b[0:], stopping at the first all-zero
// 8-byte length field.
func ReadDirEntries(b []byte) ([]DirEntry, error) {
	var entries []DirEntry
	pos := 0
	for {
		if pos+8 > len(b) {
			return entries, nil
		}
		length := bytesx.U64LE(b[pos : pos+8])
		if length == 0 {
			return entries, nil
		}
		end := pos + int(length)
		if end > len(b) {
			return nil, diskerr.New(diskerr.Truncated, "wimfs", "directory entry", nil)
		}
		e, err := parseDirEntry(b[pos:end])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		pos = end
	}
}

func parseDirEntry(b []byte) (DirEntry, error) {
	if len(b) < direntryFixedSize {
		return DirEntry{}, diskerr.New(diskerr.Truncated, "wimfs", "directory entry header", nil)
	}
	var e DirEntry
	e.Attributes = bytesx.U32LE(b[8:12])
	e.SecurityIndex = bytesx.U32LE(b[12:16])
	e.SubdirOffset = bytesx.U64LE(b[16:24])
	e.CreationTime = bytesx.U64LE(b[40:48])
	e.LastAccessTime = bytesx.U64LE(b[48:56])
	e.LastWriteTime = bytesx.U64LE(b[56:64])
	copy(e.Hash[:], b[64:84])
	e.ReparseTag = bytesx.U32LE(b[88:92])
	e.HardLinkID = bytesx.U64LE(b[92:100])
	streamCount := int(bytesx.U16LE(b[100:102]))
	shortNameLen := int(bytesx.U16LE(b[102:104]))
	fileNameLen := int(bytesx.U16LE(b[104:106]))

	pos := direntryFixedSize
	name, n, err := parseUTF16LEField(b[pos:], fileNameLen)
	if err != nil {
		return DirEntry{}, err
	}
	e.FileName = name
	pos += n

	short, n, err := parseUTF16LEField(b[pos:], shortNameLen)
	if err != nil {
		return DirEntry{}, err
	}
	e.ShortName = short
	pos += n

	for i := 0; i < streamCount && pos < len(b); i++ {
		if pos+8 > len(b) {
			break
		}
		streamLen := bytesx.U64LE(b[pos : pos+8])
		if streamLen == 0 || pos+int(streamLen) > len(b) {
			break
		}
		rec := b[pos : pos+int(streamLen)]
		var s AlternateStream
		// Stream record layout: length(8) + reserved(8) + hash(20) + name_length(2) + name.
		if len(rec) >= 38 {
			copy(s.Hash[:], rec[16:36])
			nameLen := int(bytesx.U16LE(rec[36:38]))
			if nameLen > 0 && 38+nameLen <= len(rec) {
				s.Name = bytesx.UTF16LEString(rec[38 : 38+nameLen])
			}
		}
		e.Streams = append(e.Streams, s)
		pos += int(streamLen)
	}

	return e, nil
}
