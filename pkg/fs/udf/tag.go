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
	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const tagSize = 16

func parseTag(b []byte) (Tag, error) {
	if len(b) < tagSize {
		return Tag{}, diskerr.New(diskerr.Truncated, "udf", "descriptor tag", nil)
	}
	return Tag{
		Identifier:   bytesx.U16LE(b[0:2]),
		Version:      bytesx.U16LE(b[2:4]),
		Checksum:     b[4],
		SerialNumber: bytesx.U16LE(b[6:8]),
		CRC:          bytesx.U16LE(b[8:10]),
		CRCLength:    bytesx.U16LE(b[10:12]),
		Location:     bytesx.U32LE(b[12:16]),
	}, nil
}

// validateTag checks a descriptor's tag against its declared identifier and
// recomputes both the 8-bit tag checksum and the CRC over the descriptor
// body (ECMA-167 3/7.2): the checksum covers bytes 0..3 and 5..15 of the
// tag itself (byte 4, the checksum field, is excluded), and the CRC covers
// crcLength bytes starting right after the 16-byte tag.
func validateTag(descriptor []byte, wantIdentifier uint16) (Tag, error) {
	tag, err := parseTag(descriptor)
	if err != nil {
		return Tag{}, err
	}
	if tag.Identifier != wantIdentifier {
		return Tag{}, diskerr.New(diskerr.BadMagic, "udf", "descriptor tag identifier", nil)
	}

	var sum uint8
	for i := 0; i < tagSize; i++ {
		if i == 4 {
			continue
		}
		sum += descriptor[i]
	}
	if sum != tag.Checksum {
		return Tag{}, diskerr.New(diskerr.ChecksumMismatch, "udf", "descriptor tag checksum", nil)
	}

	end := tagSize + int(tag.CRCLength)
	if end > len(descriptor) {
		return Tag{}, diskerr.New(diskerr.Truncated, "udf", "descriptor crc body", nil)
	}
	if tag.CRCLength > 0 && crc16CCITT(descriptor[tagSize:end]) != tag.CRC {
		return Tag{}, diskerr.New(diskerr.ChecksumMismatch, "udf", "descriptor crc", nil)
	}
	return tag, nil
}

// crc16CCITT computes the CRC-ITU-T (X^16+X^12+X^5+1) checksum ECMA-167
// specifies for descriptor CRCs, seeded at zero.
func crc16CCITT(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
