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
package bytesx

import (
	"crypto/md5"
	"crypto/sha1"
	"hash"
	"hash/crc32"
)

// CRC32 computes the standard IEEE CRC32 used by GPT header/entry-array
// checksums.
func CRC32(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// UDFTagChecksum is the 8-bit sum of bytes 0..3 and 5..15 of a 16-byte UDF
// descriptor tag (byte 4, the checksum slot itself, is excluded), per
// spec.md §4.5.4.
func UDFTagChecksum(tag [16]byte) byte {
	var sum byte
	for i, b := range tag {
		if i == 4 {
			continue
		}
		sum += b
	}
	return sum
}

// NewSHA1 / NewMD5 return streaming hashers for hash-observing streams
// (spec.md §4.1) — WIM content verification uses SHA-1, NTFS/ext checksum
// round-trips use either depending on the on-disk structure.
func NewSHA1() hash.Hash { return sha1.New() }
func NewMD5() hash.Hash  { return md5.New() }
