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

package wimfs

import "github.com/corehound/diskvfs/pkg/bytesx"

const (
	resourceFlagCompressed = 0x04
	resourceFlagMetadata   = 0x02
	resourceFlagSpanned    = 0x08
)

// ResourceHeader locates a resource (a run of possibly-compressed bytes) in
// the underlying archive. Size and Flags share a single on-disk u64: the low
// 56 bits hold the compressed size on disk, the high 8 bits hold the flags.
type ResourceHeader struct {
	Size         uint64
	Flags        uint8
	Offset       uint64
	OriginalSize uint64
}

func (h ResourceHeader) Compressed() bool { return h.Flags&resourceFlagCompressed != 0 }
func (h ResourceHeader) Metadata() bool   { return h.Flags&resourceFlagMetadata != 0 }
func (h ResourceHeader) Spanned() bool    { return h.Flags&resourceFlagSpanned != 0 }

// parseResourceHeader decodes a 24-byte ResourceHeader from b[0:24].
func parseResourceHeader(b []byte) ResourceHeader {
	packed := bytesx.U64LE(b[0:8])
	return ResourceHeader{
		Size:         packed & 0x00ffffffffffffff,
		Flags:        uint8(packed >> 56),
		Offset:       bytesx.U64LE(b[8:16]),
		OriginalSize: bytesx.U64LE(b[16:24]),
	}
}
