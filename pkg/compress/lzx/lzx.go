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

// Package lzx decodes the 32K-window, block-based LZX format used by WIM
// resource streams (spec.md §4.6). Verbatim and uncompressed blocks are
// supported; aligned-offset blocks report UnsupportedFeature, matching
// spec.md's note that the full algorithm is "deferred to reference".
package lzx

import (
	"fmt"

	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	windowSize       = 32 * 1024
	numPositionSlots = 30
	numPretreeSyms   = 20
	numLengthSyms    = 249
	minMatch         = 2
	numPrimaryLens   = 8 // header values 0..7; 7 means "read length tree"

	blockVerbatim    = 1
	blockAligned     = 2
	blockUncompressed = 3
)

var positionBase = [numPositionSlots]uint32{
	0, 1, 2, 3, 4, 6, 8, 10, 14, 18, 24, 32, 48, 64, 96, 128,
	192, 256, 384, 512, 768, 1024, 1536, 2048, 3072, 4096, 6144, 8192, 12288, 16384,
}

var extraBits = [numPositionSlots]uint{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// bitReader pulls bits MSB-first out of 16-bit little-endian words, the
// packing convention LZX's bitstream uses.
type bitReader struct {
	data     []byte
	consumed uint // absolute bit position, counted MSB-first within each 16-bit little-endian word
}

func (r *bitReader) bitAt(i uint) (uint32, error) {
	wordIdx := int(i/16) * 2
	if wordIdx+1 >= len(r.data) {
		return 0, fmt.Errorf("lzx: truncated bitstream")
	}
	word := uint32(r.data[wordIdx]) | uint32(r.data[wordIdx+1])<<8
	shift := 15 - i%16
	return (word >> shift) & 1, nil
}

func (r *bitReader) readBits(n uint) (uint32, error) {
	var v uint32
	for k := uint(0); k < n; k++ {
		b, err := r.bitAt(r.consumed)
		if err != nil {
			return 0, err
		}
		v = v<<1 | b
		r.consumed++
	}
	return v, nil
}

// alignTo16 discards whatever partial bits remain in the current 16-bit
// word; rawBytePos() then gives the byte offset raw (non-Huffman) reads
// should resume from.
func (r *bitReader) alignTo16() {
	if rem := r.consumed % 16; rem != 0 {
		r.consumed += 16 - rem
	}
}

func (r *bitReader) rawBytePos() int { return int(r.consumed / 8) }

// huffTable is a canonical-code decoder built from a code-length array, the
// same construction xpress.buildTable uses, generalized to arbitrary symbol
// counts and a 16-bit maximum code length.
type huffTable struct {
	byLength map[int]map[uint32]int
}

const maxLZXCodeLen = 16

func buildHuffTable(lengths []uint8) *huffTable {
	var countPerLen [maxLZXCodeLen + 1]int
	for _, l := range lengths {
		if l > 0 {
			countPerLen[l]++
		}
	}
	var firstCode [maxLZXCodeLen + 2]uint32
	code := uint32(0)
	for l := 1; l <= maxLZXCodeLen; l++ {
		firstCode[l] = code
		code = (code + uint32(countPerLen[l])) << 1
	}
	t := &huffTable{byLength: make(map[int]map[uint32]int)}
	next := firstCode
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		if t.byLength[int(l)] == nil {
			t.byLength[int(l)] = make(map[uint32]int)
		}
		t.byLength[int(l)][next[l]] = sym
		next[l]++
	}
	return t
}

func (t *huffTable) decode(r *bitReader) (int, error) {
	var code uint32
	for l := 1; l <= maxLZXCodeLen; l++ {
		b, err := r.readBits(1)
		if err != nil {
			return 0, err
		}
		code = code<<1 | b
		if m, ok := t.byLength[l]; ok {
			if sym, ok := m[code]; ok {
				return sym, nil
			}
		}
	}
	return 0, fmt.Errorf("lzx: invalid huffman code")
}

// readLengths decodes n code lengths via a pretree-coded delta scheme
// (spec.md §4.6; the pretree symbol alphabet mirrors DEFLATE's code-length
// alphabet but with a mod-17 delta instead of absolute lengths).
func readLengths(r *bitReader, prev []uint8, n int) ([]uint8, error) {
	pretreeLens := make([]uint8, numPretreeSyms)
	for i := range pretreeLens {
		v, err := r.readBits(4)
		if err != nil {
			return nil, err
		}
		pretreeLens[i] = uint8(v)
	}
	pretree := buildHuffTable(pretreeLens)

	out := make([]uint8, n)
	copy(out, prev)
	i := 0
	for i < n {
		sym, err := pretree.decode(r)
		if err != nil {
			return nil, err
		}
		switch {
		case sym == 17:
			run, err := r.readBits(4)
			if err != nil {
				return nil, err
			}
			run += 4
			for ; run > 0 && i < n; run-- {
				out[i] = 0
				i++
			}
		case sym == 18:
			run, err := r.readBits(5)
			if err != nil {
				return nil, err
			}
			run += 20
			for ; run > 0 && i < n; run-- {
				out[i] = 0
				i++
			}
		case sym == 19:
			run, err := r.readBits(1)
			if err != nil {
				return nil, err
			}
			run += 4
			delta, err := pretree.decode(r)
			if err != nil {
				return nil, err
			}
			base := int(out[i]) - delta
			base = ((base % 17) + 17) % 17
			for ; run > 0 && i < n; run-- {
				out[i] = uint8(base)
				i++
			}
		default:
			v := int(out[i]) - sym
			v = ((v % 17) + 17) % 17
			out[i] = uint8(v)
			i++
		}
	}
	return out, nil
}

// Decode decompresses one LZX block stream into exactly uncompressedSize
// bytes, using history as the preceding window contents (nil for the first
// chunk of a resource).
func Decode(src []byte, uncompressedSize int, history []byte) ([]byte, error) {
	r := &bitReader{data: src}
	out := make([]byte, 0, uncompressedSize+len(history))
	out = append(out, history...)
	histLen := len(history)

	mainLens := make([]uint8, 256+numPositionSlots*numPrimaryLens)
	lengthLens := make([]uint8, numLengthSyms)
	repeat := [3]uint32{1, 1, 1}

	for len(out)-histLen < uncompressedSize {
		blockType, err := r.readBits(3)
		if err != nil {
			return nil, err
		}
		blockSizeHi, err := r.readBits(16)
		if err != nil {
			return nil, err
		}
		blockSizeLo, err := r.readBits(8)
		if err != nil {
			return nil, err
		}
		blockSize := int(blockSizeHi)<<8 | int(blockSizeLo)

		switch blockType {
		case blockUncompressed:
			r.alignTo16()
			// R0/R1/R2 are stored as raw little-endian u32s directly in the
			// byte stream, bypassing the bit reader.
			pos := r.rawBytePos()
			if pos+12 > len(src) {
				return nil, fmt.Errorf("lzx: truncated uncompressed block header")
			}
			repeat[0] = leU32(src[pos:])
			repeat[1] = leU32(src[pos+4:])
			repeat[2] = leU32(src[pos+8:])
			pos += 12
			if pos+blockSize > len(src) {
				return nil, fmt.Errorf("lzx: truncated uncompressed block body")
			}
			out = append(out, src[pos:pos+blockSize]...)
			pos += blockSize
			r.consumed = uint(pos) * 8

		case blockVerbatim, blockAligned:
			if blockType == blockAligned {
				return nil, diskerr.New(diskerr.UnsupportedFeature, "lzx", "aligned-offset blocks", nil)
			}
			firstHalf, err := readLengths(r, mainLens[:256], 256)
			if err != nil {
				return nil, err
			}
			secondHalf, err := readLengths(r, mainLens[256:], numPositionSlots*numPrimaryLens)
			if err != nil {
				return nil, err
			}
			mainLens = append(append([]uint8{}, firstHalf...), secondHalf...)
			mainTree := buildHuffTable(mainLens)

			lengthLens, err = readLengths(r, lengthLens, numLengthSyms)
			if err != nil {
				return nil, err
			}
			lengthTree := buildHuffTable(lengthLens)

			produced := 0
			for produced < blockSize {
				sym, err := mainTree.decode(r)
				if err != nil {
					return nil, err
				}
				if sym < 256 {
					out = append(out, byte(sym))
					produced++
					continue
				}
				element := sym - 256
				lengthHeader := element % numPrimaryLens
				positionSlot := element / numPrimaryLens

				length := uint32(lengthHeader) + minMatch
				if lengthHeader == numPrimaryLens-1 {
					footer, err := lengthTree.decode(r)
					if err != nil {
						return nil, err
					}
					length = uint32(numPrimaryLens-1) + minMatch + uint32(footer)
				}

				var offset uint32
				switch positionSlot {
				case 0:
					offset = repeat[0]
				case 1:
					offset = repeat[1]
					repeat[1] = repeat[0]
					repeat[0] = offset
				case 2:
					offset = repeat[2]
					repeat[2] = repeat[0]
					repeat[0] = offset
				default:
					eb := extraBits[positionSlot]
					extra, err := r.readBits(eb)
					if err != nil {
						return nil, err
					}
					offset = positionBase[positionSlot] + extra - 2
					repeat[2] = repeat[1]
					repeat[1] = repeat[0]
					repeat[0] = offset
				}

				start := len(out) - int(offset) - 1
				if start < 0 {
					return nil, fmt.Errorf("lzx: match distance exceeds output")
				}
				for i := uint32(0); i < length; i++ {
					out = append(out, out[start+int(i)])
				}
				produced += int(length)
			}

		default:
			return nil, diskerr.New(diskerr.UnsupportedFeature, "lzx", "unknown block type", nil)
		}
	}
	return out[histLen:], nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// TranslateE8 reverses the call-instruction (0xE8) absolute-offset encoding
// LZX applies to x86 executables before compressing them, for resources
// whose declared uncompressed size is at most 12 MB (spec.md §4.6).
func TranslateE8(data []byte, fileSize uint32) {
	const threshold = 12 * 1024 * 1024
	if fileSize > threshold || len(data) < 6 {
		return
	}
	for i := 0; i+5 <= len(data); i++ {
		if data[i] != 0xE8 {
			continue
		}
		abs := leU32(data[i+1:])
		if abs >= fileSize {
			continue
		}
		rel := abs - uint32(i+5)
		data[i+1] = byte(rel)
		data[i+2] = byte(rel >> 8)
		data[i+3] = byte(rel >> 16)
		data[i+4] = byte(rel >> 24)
		i += 4
	}
}
