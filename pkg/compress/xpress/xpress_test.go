package xpress_test

import (
	"testing"

	"github.com/corehound/diskvfs/pkg/compress/xpress"
	"github.com/stretchr/testify/require"
)

// allLiteralsChunk builds a code-length table where every one of the 256
// literal symbols has length 8 and every match symbol is unused (length 0).
// That table satisfies the Kraft equality on its own (2^-8 * 256 == 1), so
// canonical-code assignment gives literal symbol v the 8-bit code v itself —
// meaning the "compressed" body below is just the plaintext bytes.
func allLiteralsChunk(payload []byte) []byte {
	table := make([]byte, 256)
	for i := 0; i < 128; i++ {
		table[i] = 0x88 // symbols 2i, 2i+1 both length 8
	}
	return append(table, payload...)
}

func TestDecodeAllLiteralChunkIsIdentity(t *testing.T) {
	payload := []byte("hello, xpress world")
	chunk := allLiteralsChunk(payload)

	out, err := xpress.Decode(chunk, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestDecodeRejectsShortChunk(t *testing.T) {
	_, err := xpress.Decode(make([]byte, 10), 5)
	require.Error(t, err)
}

// bitBuilder assembles an MSB-first bit sequence, packed the way xpress's
// bitReader reads it: bit i of the logical stream is bit (7 - i%8) of
// byte i/8, no 16-bit word swap (unlike LZX's bitstream).
type bitBuilder struct {
	bits []int
}

func (b *bitBuilder) push(value uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		b.bits = append(b.bits, int((value>>uint(i))&1))
	}
}

func (b *bitBuilder) bytes() []byte {
	bits := append([]int(nil), b.bits...)
	for len(bits)%8 != 0 {
		bits = append(bits, 0)
	}
	out := make([]byte, len(bits)/8)
	for i, bit := range bits {
		if bit != 0 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// allSymbolsLen9Table gives all 512 symbols (256 literals plus 256 match
// symbols) a 9-bit code, the minimal length a complete 512-symbol alphabet
// can use (512 * 2^-9 == 1). Canonical assignment in ascending symbol order
// then gives symbol s the 9-bit code equal to s itself, so a match symbol's
// code can be written directly as its numeric value.
func allSymbolsLen9Table() []byte {
	table := make([]byte, 256)
	for i := range table {
		table[i] = 0x99 // low nibble 9, high nibble 9: both packed symbols get length 9
	}
	return table
}

func TestDecodeRepeatDistanceOneMatchRepeatsLastByte(t *testing.T) {
	// Match symbol 256 decodes to offsetBits=0, lengthNibble=0: distance 1
	// (the shortest possible back-reference), match length 3.
	b := &bitBuilder{}
	b.push('A', 9)
	b.push('B', 9)
	b.push(256, 9)

	chunk := append(allSymbolsLen9Table(), b.bytes()...)
	out, err := xpress.Decode(chunk, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("ABBBB"), out)
}

func TestDecodeMatchWithOffsetExtraBitsRepeatsEarlierRun(t *testing.T) {
	// Match symbol 272 (256 + 16) decodes to offsetBits=1, lengthNibble=0:
	// one extra offset bit is read from the stream, giving distance 2+extra.
	// With extra=1, distance=3, so it copies the "XYZ" run just written.
	b := &bitBuilder{}
	b.push('X', 9)
	b.push('Y', 9)
	b.push('Z', 9)
	b.push(272, 9)
	b.push(1, 1) // offset extra bit

	chunk := append(allSymbolsLen9Table(), b.bytes()...)
	out, err := xpress.Decode(chunk, 6)
	require.NoError(t, err)
	require.Equal(t, []byte("XYZXYZ"), out)
}
