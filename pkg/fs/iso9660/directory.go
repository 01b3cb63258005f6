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
package iso9660

import (
	"strings"

	"github.com/corehound/diskvfs/pkg/bytesx"
)

// DirEntry is one fully-decoded directory record.
type DirEntry struct {
	Name       string
	IsDir      bool
	ExtentLBA  uint32
	DataLength uint32
}

// parseDirectoryRecords walks one directory extent's 33-byte-header,
// variable-length records. joliet selects UTF-16BE name decode; hideVersions
// strips a trailing ";N" version suffix (spec.md §4.5.5).
func parseDirectoryRecords(data []byte, joliet, hideVersions bool) []DirEntry {
	var out []DirEntry
	pos := 0
	for pos < len(data) {
		length := int(data[pos])
		if length == 0 {
			// Records never span a logical-sector boundary; a zero length
			// byte marks padding to the next sector.
			pos += SectorSize - (pos % SectorSize)
			continue
		}
		if pos+length > len(data) {
			break
		}
		rec := data[pos : pos+length]
		h := parseDirRecordHeader(rec)
		nameBytes := rec[33 : 33+int(h.NameLength)]

		var name string
		if len(nameBytes) == 1 && (nameBytes[0] == 0x00 || nameBytes[0] == 0x01) {
			pos += length
			continue // "." and ".." self/parent records
		}
		if joliet {
			name = bytesx.UTF16BEString(nameBytes)
		} else {
			name = string(nameBytes)
		}

		sysUseStart := 33 + int(h.NameLength)
		if int(h.NameLength)%2 == 0 {
			sysUseStart++ // padding byte when name length is even
		}
		if sysUseStart < length {
			if rr := rockRidgeName(rec[sysUseStart:length]); rr != "" {
				name = rr
			}
		}

		if !joliet {
			if idx := strings.IndexByte(name, ';'); idx >= 0 {
				if hideVersions {
					name = name[:idx]
				}
			}
		}

		out = append(out, DirEntry{
			Name:       name,
			IsDir:      h.FileFlags&dirFlagDirectory != 0,
			ExtentLBA:  h.ExtentLBA,
			DataLength: h.DataLength,
		})
		pos += length
	}
	return out
}

// rockRidgeName scans a record's system-use area for an "NM" entry
// carrying the POSIX name (spec.md §4.5.5). CE continuation entries are
// not followed; only the inline NM, if present, is honored.
func rockRidgeName(su []byte) string {
	pos := 0
	var name strings.Builder
	found := false
	for pos+4 <= len(su) {
		sig := string(su[pos : pos+2])
		length := int(su[pos+2])
		if length < 4 || pos+length > len(su) {
			break
		}
		if sig == "NM" && length >= 5 {
			name.Write(su[pos+5 : pos+length])
			found = true
		}
		pos += length
	}
	if !found {
		return ""
	}
	return name.String()
}
