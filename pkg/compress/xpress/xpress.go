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

// Package xpress decodes the Microsoft XPRESS "Huffman" chunk format used by
// WIM resource streams (spec.md §4.6).
package xpress

import (
	"fmt"
)

const (
	tableBytes  = 256
	numSymbols  = 512
	maxCodeLen  = 15
	minMatchLen = 3
)

// bitReader reads MSB-first bits from a byte slice, the same convention
// internal/buffer.BitReader in the pack's disc-info tooling uses for its
// bitstream fields, generalized here for Huffman code decode.
type bitReader struct {
	data    []byte
	bytePos int
	bitPos  uint8
}

func (r *bitReader) readBit() (uint32, bool) {
	if r.bytePos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.bytePos]
	bit := uint32((b >> (7 - r.bitPos)) & 1)
	r.bitPos++
	if r.bitPos == 8 {
		r.bitPos = 0
		r.bytePos++
	}
	return bit, true
}

func (r *bitReader) readBits(n int) (uint32, bool) {
	var v uint32
	for i := 0; i < n; i++ {
		b, ok := r.readBit()
		if !ok {
			return 0, false
		}
		v = v<<1 | b
	}
	return v, true
}

func (r *bitReader) readByte() (byte, bool) {
	v, ok := r.readBits(8)
	return byte(v), ok
}

// huffmanTable is a canonical-code decode table built from 512 4-bit code
// lengths (spec.md §4.6).
type huffmanTable struct {
	byLength map[int]map[uint32]int // bit length -> code -> symbol
}

func buildTable(lengths [numSymbols]uint8) *huffmanTable {
	var countPerLen [maxCodeLen + 1]int
	for _, l := range lengths {
		if l > 0 {
			countPerLen[l]++
		}
	}
	var firstCode [maxCodeLen + 2]uint32
	code := uint32(0)
	for l := 1; l <= maxCodeLen; l++ {
		firstCode[l] = code
		code = (code + uint32(countPerLen[l])) << 1
	}
	t := &huffmanTable{byLength: make(map[int]map[uint32]int)}
	next := firstCode
	for sym := 0; sym < numSymbols; sym++ {
		l := int(lengths[sym])
		if l == 0 {
			continue
		}
		if t.byLength[l] == nil {
			t.byLength[l] = make(map[uint32]int)
		}
		t.byLength[l][next[l]] = sym
		next[l]++
	}
	return t
}

func (t *huffmanTable) decode(r *bitReader) (int, error) {
	var code uint32
	for l := 1; l <= maxCodeLen; l++ {
		b, ok := r.readBit()
		if !ok {
			return 0, fmt.Errorf("xpress: truncated huffman code")
		}
		code = code<<1 | b
		if m, ok := t.byLength[l]; ok {
			if sym, ok := m[code]; ok {
				return sym, nil
			}
		}
	}
	return 0, fmt.Errorf("xpress: invalid huffman code")
}

// Decode decompresses one XPRESS-Huffman chunk. src must start with the
// 256-byte code-length table; uncompressedSize bounds the output.
func Decode(src []byte, uncompressedSize int) ([]byte, error) {
	if len(src) < tableBytes {
		return nil, fmt.Errorf("xpress: chunk too short for code table")
	}
	var lengths [numSymbols]uint8
	for i := 0; i < tableBytes; i++ {
		b := src[i]
		lengths[2*i] = b & 0xF
		lengths[2*i+1] = b >> 4
	}
	table := buildTable(lengths)
	r := &bitReader{data: src[tableBytes:]}

	out := make([]byte, 0, uncompressedSize)
	for len(out) < uncompressedSize {
		sym, err := table.decode(r)
		if err != nil {
			return nil, err
		}
		if sym < 256 {
			out = append(out, byte(sym))
			continue
		}
		s := sym - 256
		offsetBits := s >> 4
		lengthNibble := s & 0xF

		extra, ok := r.readBits(offsetBits)
		if !ok {
			return nil, fmt.Errorf("xpress: truncated match offset")
		}
		offset := (uint32(1)<<uint(offsetBits) - 1) + extra

		length := uint32(lengthNibble) + minMatchLen
		if lengthNibble == 0xF {
			b, ok := r.readByte()
			if !ok {
				return nil, fmt.Errorf("xpress: truncated match length byte")
			}
			if b == 0xFF {
				hi, ok1 := r.readByte()
				lo, ok2 := r.readByte()
				if !ok1 || !ok2 {
					return nil, fmt.Errorf("xpress: truncated match length u16")
				}
				length = uint32(lo)<<8 | uint32(hi)
			} else {
				length += uint32(b)
			}
		}

		distance := int(offset) + 1
		start := len(out) - distance
		if start < 0 {
			return nil, fmt.Errorf("xpress: match distance exceeds output")
		}
		for i := uint32(0); i < length && len(out) < uncompressedSize; i++ {
			out = append(out, out[start+int(i)])
		}
	}
	return out, nil
}
