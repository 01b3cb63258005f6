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

// Package bytesx holds the byte-level primitives every reader in the module
// builds on: endian decode/encode helpers, string decoders, and the
// checksum/hash wrappers used by partition tables, containers and file
// systems alike.
package bytesx

import (
	"encoding/binary"
	"strconv"
	"strings"
	"unicode/utf16"
)

// U16LE/U32LE/U64LE decode little-endian integers from a byte slice, the way
// MBRPartitionEntry.ReadStartLBA does for a single field, generalized to any
// offset so struct-decode code can stay declarative.
func U16LE(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func U32LE(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func U64LE(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

func U16BE(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func U32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func U64BE(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func PutU16LE(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func PutU32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func PutU64LE(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

func PutU16BE(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func PutU32BE(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func PutU64BE(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }

// CString trims a fixed-width, NUL-terminated field down to its content.
func CString(b []byte) string {
	if i := indexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// FixedASCII trims trailing spaces from a fixed-width space-padded field,
// the way tar/ISO9660 identifier fields are stored.
func FixedASCII(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// UTF16BEString decodes a big-endian UTF-16 field (HFS+ catalog names, UDF
// compression-code-0x10 identifiers, Joliet names) into a Go string.
func UTF16BEString(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	u16 := make([]uint16, 0, len(b)/2)
	for i := 0; i < len(b); i += 2 {
		v := U16BE(b[i:])
		if v == 0 {
			break
		}
		u16 = append(u16, v)
	}
	return string(utf16.Decode(u16))
}

// UTF16LEString decodes a little-endian UTF-16 field (GPT partition names,
// FAT long-file-name fragments).
func UTF16LEString(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	u16 := make([]uint16, 0, len(b)/2)
	for i := 0; i < len(b); i += 2 {
		v := U16LE(b[i:])
		if v == 0 {
			break
		}
		u16 = append(u16, v)
	}
	return string(utf16.Decode(u16))
}

// ParseOctal parses a tar-header style octal numeric field, which may be
// NUL- or space-terminated.
func ParseOctal(b []byte) (int64, error) {
	s := strings.TrimRight(strings.TrimSpace(string(b)), "\x00")
	s = strings.TrimLeft(s, "\x00 ")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 8, 64)
}

// ParseTarSize parses a tar entry's 12-byte size field, which is either
// octal ASCII or, for GNU "base-256" encoding, a leading 0x80 byte followed
// by an 8-byte big-endian binary length (spec.md §3, tar entry).
func ParseTarSize(b []byte) (int64, error) {
	if len(b) > 0 && b[0]&0x80 != 0 {
		var v uint64
		start := len(b) - 8
		if start < 1 {
			start = 1
		}
		for _, c := range b[start:] {
			v = v<<8 | uint64(c)
		}
		return int64(v), nil
	}
	return ParseOctal(b)
}
