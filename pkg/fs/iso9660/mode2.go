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
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
)

// Raw CD Mode2/Form1 sectors are 2352 bytes: a 16-byte sync+header+subheader
// prefix, 2048 bytes of user data, and a 288-byte EDC/ECC trailer.
const (
	rawSectorSize  = 2352
	rawSectorPrefix = 16
)

// Mode2Stream exposes the 2048-byte logical sectors embedded in a raw CD
// image's 2352-byte Mode2/Form1 sectors as a contiguous stream, so the rest
// of this package can treat a .bin/.iso dump uniformly regardless of which
// sector size the source used.
type Mode2Stream struct {
	raw  sparse.Stream
	size int64
}

// NewMode2Stream wraps raw, which must hold a whole number of 2352-byte
// sectors.
func NewMode2Stream(raw sparse.Stream) (*Mode2Stream, error) {
	total := raw.Size()
	if total%rawSectorSize != 0 {
		return nil, diskerr.New(diskerr.CorruptStructure, "iso9660", "raw CD image size not a multiple of 2352", nil)
	}
	sectors := total / rawSectorSize
	return &Mode2Stream{raw: raw, size: sectors * SectorSize}, nil
}

func (m *Mode2Stream) Size() int64 { return m.size }

func (m *Mode2Stream) ReadAt(p []byte, off int64) (int, error) {
	total := 0
	for total < len(p) {
		logicalSector := (off + int64(total)) / SectorSize
		logicalOff := (off + int64(total)) % SectorSize
		rawOff := logicalSector*rawSectorSize + rawSectorPrefix + logicalOff
		want := SectorSize - int(logicalOff)
		if remain := len(p) - total; want > remain {
			want = remain
		}
		n, err := m.raw.ReadAt(p[total:total+want], rawOff)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func (m *Mode2Stream) Extents(offset, length int64) (sparse.Extents, error) {
	if offset >= m.size {
		return nil, nil
	}
	if offset+length > m.size {
		length = m.size - offset
	}
	return sparse.Extents{{Offset: uint64(offset), Length: uint64(length)}}, nil
}
