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

import (
	"encoding/hex"

	"github.com/corehound/diskvfs/pkg/bytesx"
)

const lookupEntrySize = 50

// LookupEntry is one 50-byte record of the WIM lookup table: a resource
// location keyed by its SHA-1 content hash (spec.md §4.5.7).
type LookupEntry struct {
	Resource ResourceHeader
	PartNum  uint16
	RefCount uint32
	Hash     [20]byte
}

func (e LookupEntry) HashHex() string { return hex.EncodeToString(e.Hash[:]) }

func parseLookupEntry(b []byte) LookupEntry {
	var e LookupEntry
	e.Resource = parseResourceHeader(b[0:24])
	e.PartNum = bytesx.U16LE(b[24:26])
	e.RefCount = bytesx.U32LE(b[26:30])
	copy(e.Hash[:], b[30:50])
	return e
}

// LookupTable indexes lookup entries by content hash and tracks, in on-disk
// order, which entries are flagged as per-image metadata resources.
type LookupTable struct {
	byHash   map[[20]byte]LookupEntry
	metadata []LookupEntry
}

// ParseLookupTable decodes every 50-byte entry packed into b.
func ParseLookupTable(b []byte) LookupTable {
	t := LookupTable{byHash: make(map[[20]byte]LookupEntry)}
	for off := 0; off+lookupEntrySize <= len(b); off += lookupEntrySize {
		e := parseLookupEntry(b[off : off+lookupEntrySize])
		if e.Hash != ([20]byte{}) {
			t.byHash[e.Hash] = e
		}
		if e.Resource.Metadata() {
			t.metadata = append(t.metadata, e)
		}
	}
	return t
}

// ByHash returns the resource location for a content hash, if known.
func (t LookupTable) ByHash(hash [20]byte) (LookupEntry, bool) {
	e, ok := t.byHash[hash]
	return e, ok
}

// MetadataResource returns the metadata resource for image index (1-based,
// matching WIM's image numbering), found by walking METADATA-flagged
// entries in the order they appear in the lookup table and taking the
// (index-1)'th one — the same indirection libwim uses, since the lookup
// table itself carries no explicit image-to-entry mapping.
func (t LookupTable) MetadataResource(imageIndex int) (ResourceHeader, bool) {
	i := imageIndex - 1
	if i < 0 || i >= len(t.metadata) {
		return ResourceHeader{}, false
	}
	return t.metadata[i].Resource, true
}

func (t LookupTable) ImageCount() int { return len(t.metadata) }
