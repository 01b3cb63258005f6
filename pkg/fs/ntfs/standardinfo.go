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
	"time"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	dosReadOnly = 0x0001
	dosHidden   = 0x0002
	dosSystem   = 0x0004
)

// StandardInformation is the decoded $STANDARD_INFORMATION resident value.
type StandardInformation struct {
	Created  uint64
	Modified uint64
	MFTChanged uint64
	Accessed uint64
	FileAttributes uint32
}

func parseStandardInformation(b []byte) (StandardInformation, error) {
	if len(b) < 36 {
		return StandardInformation{}, diskerr.New(diskerr.Truncated, "ntfs", "standard_information", nil)
	}
	return StandardInformation{
		Created:        bytesx.U64LE(b[0:8]),
		Modified:       bytesx.U64LE(b[8:16]),
		MFTChanged:     bytesx.U64LE(b[16:24]),
		Accessed:       bytesx.U64LE(b[24:32]),
		FileAttributes: bytesx.U32LE(b[32:36]),
	}, nil
}

func (s StandardInformation) ReadOnly() bool { return s.FileAttributes&dosReadOnly != 0 }
func (s StandardInformation) Hidden() bool   { return s.FileAttributes&dosHidden != 0 }
func (s StandardInformation) System() bool   { return s.FileAttributes&dosSystem != 0 }

// filetimeToTime converts a Windows FILETIME (100ns ticks since
// 1601-01-01) into a time.Time.
func filetimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	const epochDelta = 116444736000000000 // 1601-01-01 to 1970-01-01, in 100ns ticks
	return time.Unix(0, (int64(ft)-epochDelta)*100).UTC()
}
