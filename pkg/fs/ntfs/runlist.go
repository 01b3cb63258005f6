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

import "github.com/corehound/diskvfs/pkg/diskerr"

// Run is one (starting LCN, length in clusters) pair decoded from a
// run-list, in the order the runs cover the attribute. Sparse == true marks
// a hole (reads as zeros, occupies no disk space); a sparse run's LCN
// repeats the previous run's value and addresses nothing.
type Run struct {
	LCN    uint64
	Length uint64
	Sparse bool
}

// parseRunList decodes NTFS's delta-compressed run-list encoding: each run
// starts with a header byte whose low nibble gives the byte count of the
// (unsigned) length field and whose high nibble gives the byte count of the
// (signed, delta-from-previous-run) LCN field. A zero header byte ends the
// list. A run with a zero-length LCN field is sparse.
func parseRunList(b []byte) ([]Run, error) {
	var runs []Run
	pos := 0
	lcn := int64(0)
	for pos < len(b) {
		header := b[pos]
		if header == 0 {
			break
		}
		lengthBytes := int(header & 0x0F)
		offsetBytes := int(header >> 4)
		pos++
		if pos+lengthBytes+offsetBytes > len(b) {
			return nil, diskerr.New(diskerr.Truncated, "ntfs", "run-list entry", nil)
		}

		length := readUnsigned(b[pos : pos+lengthBytes])
		pos += lengthBytes

		isSparse := offsetBytes == 0
		if !isSparse {
			delta := readSigned(b[pos : pos+offsetBytes])
			pos += offsetBytes
			lcn += delta
		}

		runs = append(runs, Run{LCN: uint64(lcn), Length: length, Sparse: isSparse})
	}
	return runs, nil
}

func readUnsigned(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// readSigned decodes a little-endian two's-complement value of arbitrary
// byte width, sign-extending from the top byte present.
func readSigned(b []byte) int64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		v |= ^uint64(0) << uint(len(b)*8)
	}
	return int64(v)
}
