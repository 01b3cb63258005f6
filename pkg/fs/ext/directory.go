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
package ext

import (
	"strings"

	"github.com/corehound/diskvfs/pkg/bytesx"
)

// DirRecord is one 4-byte-aligned variable-length directory entry.
type DirRecord struct {
	Inode uint32
	Name  string
	IsDir bool
}

// parseDirBlock walks one directory data block's variable-length records.
// Names come back with '\\' replaced by '/' per spec.md §4.5.1.
func parseDirBlock(b []byte, hasFileType bool) []DirRecord {
	var out []DirRecord
	pos := 0
	for pos+8 <= len(b) {
		ino := bytesx.U32LE(b[pos:])
		recLen := bytesx.U16LE(b[pos+4:])
		nameLen := int(b[pos+6])
		fileType := b[pos+7]
		if recLen < 8 || int(pos)+int(recLen) > len(b) {
			break
		}
		if ino != 0 && nameLen > 0 && pos+8+nameLen <= len(b) {
			name := strings.ReplaceAll(string(b[pos+8:pos+8+nameLen]), "\\", "/")
			isDir := fileType == 2
			if !hasFileType {
				isDir = false // resolved by caller from the inode's own mode instead
			}
			if name != "." && name != ".." {
				out = append(out, DirRecord{Inode: ino, Name: name, IsDir: isDir})
			}
		}
		pos += int(recLen)
	}
	return out
}
