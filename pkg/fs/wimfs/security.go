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

// SecurityBlock is the security-descriptor table at the start of a metadata
// resource: a count of descriptors, their individual lengths, and the
// descriptor bytes themselves back to back (spec.md §4.5.7). diskvfs does
// not interpret descriptor contents; it only needs the block's total byte
// length so directory-entry parsing can find the root entry that follows.
type SecurityBlock struct {
	TotalLength uint32
	Descriptors [][]byte
}

// ParseSecurityBlock decodes the block starting at b[0:] and returns it
// along with its total on-disk length (always a multiple of 8: the format
// pads the descriptor area up to that alignment before the root entry).
func ParseSecurityBlock(b []byte) (SecurityBlock, int, error) {
	if len(b) < 8 {
		return SecurityBlock{}, 0, diskerr.New(diskerr.Truncated, "wimfs", "security block header", nil)
	}
	totalLength := bytesx.U32LE(b[0:4])
	count := bytesx.U32LE(b[4:8])
	if uint64(totalLength) > uint64(len(b)) {
		return SecurityBlock{}, 0, diskerr.New(diskerr.CorruptStructure, "wimfs", "security block length", nil)
	}

	lengthsOff := 8
	lengthsEnd := lengthsOff + int(count)*8
	if lengthsEnd > len(b) || lengthsEnd > int(totalLength) {
		return SecurityBlock{}, 0, diskerr.New(diskerr.CorruptStructure, "wimfs", "security descriptor lengths", nil)
	}

	blk := SecurityBlock{TotalLength: totalLength}
	pos := lengthsEnd
	for i := uint32(0); i < count; i++ {
		l := bytesx.U64LE(b[lengthsOff+int(i)*8 : lengthsOff+int(i)*8+8])
		if pos+int(l) > len(b) || pos+int(l) > int(totalLength) {
			return SecurityBlock{}, 0, diskerr.New(diskerr.Truncated, "wimfs", "security descriptor blob", nil)
		}
		blk.Descriptors = append(blk.Descriptors, b[pos:pos+int(l)])
		pos += int(l)
	}

	// The block occupies totalLength bytes, 8-byte aligned.
	end := int(totalLength)
	if rem := end % 8; rem != 0 {
		end += 8 - rem
	}
	return blk, end, nil
}
