package lzx_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/compress/lzx"
	"github.com/stretchr/testify/require"
)

// bitBuilder assembles a logical MSB-first bit sequence and packs it into
// LZX's 16-bit little-endian word convention: within each word, the first
// 8 logical bits land in the physical byte stored second, the next 8 in
// the physical byte stored first.
type bitBuilder struct {
	bits []int
}

func (b *bitBuilder) push(value uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		b.bits = append(b.bits, int((value>>uint(i))&1))
	}
}

func (b *bitBuilder) bytes() []byte {
	bits := append([]int(nil), b.bits...)
	for len(bits)%16 != 0 {
		bits = append(bits, 0)
	}
	out := make([]byte, len(bits)/16*2)
	for w := 0; w*16 < len(bits); w++ {
		var hi, lo byte
		for i := 0; i < 8; i++ {
			hi = hi<<1 | byte(bits[w*16+i])
		}
		for i := 0; i < 8; i++ {
			lo = lo<<1 | byte(bits[w*16+8+i])
		}
		out[w*2] = lo
		out[w*2+1] = hi
	}
	return out
}

// pushTrivialTree emits a pretree table (20 raw 4-bit lengths) giving a
// single symbol a 1-bit code, then emits that symbol's code count times —
// the decode-side delta formula (prev - deltaSymbol) mod 17 then assigns
// every one of count positions the resulting length.
func pushTrivialTree(b *bitBuilder, onlySymbol, count int) {
	lens := make([]int, 20)
	lens[onlySymbol] = 1
	for _, l := range lens {
		b.push(uint64(l), 4)
	}
	for i := 0; i < count; i++ {
		b.push(0, 1) // the lone length-1 code is always bit 0
	}
}

func TestDecodeVerbatimBlockAllLiteralsIsIdentity(t *testing.T) {
	payload := []byte("abcd")

	b := &bitBuilder{}
	b.push(1, 3)                 // block type: verbatim
	b.push(0, 16)                // block size hi
	b.push(uint64(len(payload)), 8) // block size lo

	// Main tree: pretree symbol 9 applied to all 256 literal positions
	// turns (0 - 9) mod 17 == 8 into every literal's code length, making
	// the canonical code for literal v simply v's own 8 bits.
	pushTrivialTree(b, 9, 256)
	// ... and pretree symbol 0 applied to all 240 match positions leaves
	// them at length 0 (unused — this block never emits a match).
	pushTrivialTree(b, 0, 240)
	// Length tree: unused in an all-literal block, but its table is still
	// present in the bitstream.
	pushTrivialTree(b, 0, 249)

	for _, c := range payload {
		b.push(uint64(c), 8)
	}

	out, err := lzx.Decode(b.bytes(), len(payload), nil)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestDecodeUncompressedBlockIsIdentity(t *testing.T) {
	payload := []byte("uncompressed lzx block payload")

	b := &bitBuilder{}
	b.push(3, 3)                 // block type: uncompressed
	b.push(0, 16)                // block size hi
	b.push(uint64(len(payload)), 8)

	src := b.bytes()
	// Uncompressed blocks realign to the next 16-bit boundary, then carry
	// R0/R1/R2 as three raw little-endian u32s ahead of the raw payload.
	src = append(src, 1, 0, 0, 0)
	src = append(src, 1, 0, 0, 0)
	src = append(src, 1, 0, 0, 0)
	src = append(src, payload...)

	out, err := lzx.Decode(src, len(payload), nil)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

// pushPretree13And17 emits a pretree table (20 raw 4-bit lengths) with two
// active symbols: 13 (default-branch, decodes to length 4 since (17-13)%17
// == 4) and 17 (zero-run). Both get a 1-bit code; ascending symbol order
// puts 13's lone code at '0' and 17's at '1'.
func pushPretree13And17(b *bitBuilder) {
	lens := make([]int, 20)
	lens[13] = 1
	lens[17] = 1
	for _, l := range lens {
		b.push(uint64(l), 4)
	}
}

// pushLength4Positions emits count default-branch codes (symbol 13), each
// assigning the next main-tree position a code length of 4.
func pushLength4Positions(b *bitBuilder, count int) {
	for i := 0; i < count; i++ {
		b.push(0, 1) // symbol 13
	}
}

// pushZeroRuns emits one zero-run code (symbol 17) per entry in runs,
// zero-filling that many main-tree positions; every run must be in [4, 19],
// the range the run's 4-bit extra field can encode.
func pushZeroRuns(b *bitBuilder, runs []int) {
	for _, run := range runs {
		b.push(1, 1)             // symbol 17
		b.push(uint64(run-4), 4) // run = extra + 4
	}
}

func TestDecodeVerbatimBlockWithRepeatOffsetMatch(t *testing.T) {
	b := &bitBuilder{}
	b.push(1, 3)  // block type: verbatim
	b.push(0, 16) // block size hi
	b.push(4, 8)  // block size lo: 2 literals plus one length-2 match

	// Main tree, first half (256 literal positions): bytes 0x00 and 0x01
	// each get a 4-bit code; every other literal position is unused.
	pushPretree13And17(b)
	pushLength4Positions(b, 2)
	pushZeroRuns(b, []int{19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 7})

	// Main tree, second half (240 match positions): element 0 (position
	// slot 0, length header 0 -> the R0 repeat-offset cache, match length
	// 2) gets a 4-bit code; every other match position is unused.
	pushPretree13And17(b)
	pushLength4Positions(b, 1)
	pushZeroRuns(b, []int{19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 19, 11})

	// Length tree: unused here, since the match's length header isn't the
	// escape value (numPrimaryLens-1).
	pushTrivialTree(b, 0, 249)

	// Body: literal 0x00, literal 0x01, then the R0 repeat-offset match.
	// R0 initializes to 1, so this copies the two literals just written.
	b.push(0, 4)
	b.push(1, 4)
	b.push(2, 4)

	out, err := lzx.Decode(b.bytes(), 4, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x01, 0x00, 0x01}, out)
}

func TestTranslateE8RewritesAbsoluteCallTargetsToRelative(t *testing.T) {
	// A call at file offset 0 whose stored operand is an absolute target
	// of 0x100 should become relative: 0x100 - (0+5) == 0xFB.
	data := []byte{0xE8, 0x00, 0x01, 0x00, 0x00, 0x90}
	lzx.TranslateE8(data, 0x1000)
	require.Equal(t, byte(0xFB), data[1])
	require.Equal(t, byte(0x00), data[2])
}

func TestTranslateE8IgnoresOperandsAboveFileSize(t *testing.T) {
	data := []byte{0xE8, 0x00, 0x01, 0x00, 0x00, 0x90}
	before := append([]byte(nil), data...)
	lzx.TranslateE8(data, 0x10) // operand 0x100 exceeds declared file size
	require.Equal(t, before, data)
}
