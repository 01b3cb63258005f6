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

package udf

import (
	"strings"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const fileIdentifierFixedSize = 38

// dirEntry is a decoded FileIdentifier record: a name plus the ICB of the
// file or subdirectory it names (ECMA-167 4/14.4).
type dirEntry struct {
	name        string
	icb         LBAddr
	isDirectory bool
	hidden      bool
}

// parseDirectoryData walks a directory's raw extent content as a sequence
// of 4-byte-aligned FileIdentifier records. Parent-flagged records are
// always skipped (they point back at the directory's own parent rather
// than naming a child); Deleted-flagged records are skipped unless
// includeDeleted is set.
func parseDirectoryData(data []byte, includeDeleted bool) ([]dirEntry, error) {
	var out []dirEntry
	offset := 0
	for offset+fileIdentifierFixedSize <= len(data) {
		rec := data[offset:]
		tag, err := parseTag(rec)
		if err != nil {
			return nil, err
		}
		if tag.Identifier != tagFileIdentifier {
			return nil, diskerr.New(diskerr.BadMagic, "udf", "file identifier tag", nil)
		}
		characteristics := rec[18]
		nameLen := int(rec[19])
		icb := parseLongAD(rec[20:36]).Location
		implUseLen := int(bytesx.U16LE(rec[36:38]))

		nameStart := fileIdentifierFixedSize + implUseLen
		nameEnd := nameStart + nameLen
		if nameEnd > len(rec) {
			return nil, diskerr.New(diskerr.Truncated, "udf", "file identifier name", nil)
		}

		total := (nameEnd + 3) &^ 3 // records are 4-byte aligned

		if _, err := validateTag(rec[:nameEnd], tagFileIdentifier); err != nil {
			return nil, err
		}

		if characteristics&fileCharParent == 0 && (characteristics&fileCharDeleted == 0 || includeDeleted) {
			out = append(out, dirEntry{
				name:        decodeFileIdentifier(rec[nameStart:nameEnd]),
				icb:         icb,
				isDirectory: characteristics&fileCharDirectory != 0,
				hidden:      characteristics&fileCharHidden != 0,
			})
		}

		offset += total
	}
	return out, nil
}

// decodeFileIdentifier decodes a name field led by an OSTA compression-code
// byte: 0x08 for 8-bit D-characters, 0x10 for UTF-16BE code units.
func decodeFileIdentifier(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case 0x08:
		return string(b[1:])
	case 0x10:
		return bytesx.UTF16BEString(b[1:])
	default:
		return strings.TrimRight(string(b), "\x00")
	}
}
