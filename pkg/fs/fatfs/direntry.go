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
package fatfs

import (
	"sort"
	"strings"

	"github.com/corehound/diskvfs/pkg/bytesx"
)

const (
	attrReadOnly = 0x01
	attrHidden   = 0x02
	attrSystem   = 0x04
	attrVolumeID = 0x08
	attrDir      = 0x10
	attrArchive  = 0x20
	attrLFN      = 0x0F

	entryFree    = 0x00
	entryDeleted = 0xE5
	entryE5Alias = 0x05
)

// Entry is one fully-assembled directory entry (long name resolved, or the
// short name when no LFN fragments preceded it).
type Entry struct {
	Name      string
	ShortName string
	IsDir     bool
	Size      uint32
	Cluster   uint32
}

type lfnFragment struct {
	seq   int
	last  bool
	chars []uint16
}

// parseDirectory walks a raw directory region's 32-byte entries, assembling
// LFN fragment sequences into full names per spec.md §4.5.6.
func parseDirectory(b []byte) []Entry {
	var out []Entry
	var pending []lfnFragment

	for off := 0; off+32 <= len(b); off += 32 {
		e := b[off : off+32]
		first := e[0]
		if first == entryFree {
			break
		}
		if first == entryDeleted {
			pending = nil
			continue
		}
		attr := e[11]
		if attr == attrLFN {
			seqByte := e[0]
			frag := lfnFragment{
				seq:  int(seqByte & 0x3F),
				last: seqByte&0x40 != 0,
			}
			frag.chars = append(frag.chars, lfnChars(e)...)
			pending = append(pending, frag)
			continue
		}
		if attr&attrVolumeID != 0 {
			pending = nil
			continue
		}

		name := assembleLFN(pending)
		pending = nil
		if name == "" {
			name = shortNameFromEntry(e)
		}
		shortName := shortNameFromEntry(e)
		if name == "." || name == ".." {
			continue
		}

		cluster := uint32(bytesx.U16LE(e[26:]))
		cluster |= uint32(bytesx.U16LE(e[20:])) << 16
		out = append(out, Entry{
			Name:      name,
			ShortName: shortName,
			IsDir:     attr&attrDir != 0,
			Size:      bytesx.U32LE(e[28:]),
			Cluster:   cluster,
		})
	}
	return out
}

// lfnChars extracts the 13 UCS-2 code units of one LFN fragment, split
// across bytes 1..10, 14..25, 28..31, stopping at the first U+0000.
func lfnChars(e []byte) []uint16 {
	var runs [][2]int = [][2]int{{1, 10}, {14, 25}, {28, 31}}
	var out []uint16
	for _, r := range runs {
		for i := r[0]; i+1 <= r[1]; i += 2 {
			v := bytesx.U16LE(e[i:])
			if v == 0x0000 {
				return out
			}
			out = append(out, v)
		}
	}
	return out
}

func assembleLFN(frags []lfnFragment) string {
	if len(frags) == 0 {
		return ""
	}
	sort.Slice(frags, func(i, j int) bool { return frags[i].seq < frags[j].seq })
	var u16 []uint16
	for _, f := range frags {
		u16 = append(u16, f.chars...)
	}
	return utf16ToString(u16)
}

func utf16ToString(u16 []uint16) string {
	b := make([]byte, 0, len(u16)*2)
	for _, v := range u16 {
		b = append(b, byte(v), byte(v>>8))
	}
	return bytesx.UTF16LEString(b)
}

var invalidShortNameBytes = map[byte]bool{
	0x22: true, 0x2A: true, 0x2B: true, 0x2C: true, 0x2E: true, 0x2F: true,
	0x3A: true, 0x3B: true, 0x3C: true, 0x3D: true, 0x3E: true, 0x3F: true,
	0x5B: true, 0x5C: true, 0x5D: true, 0x7C: true,
}

// IsValidShortNameByte reports whether b is legal in an 8.3 short-name
// field (spec.md §4.5.6); space (0x20) is the pad byte, always valid.
func IsValidShortNameByte(b byte) bool {
	return !invalidShortNameBytes[b]
}

func shortNameFromEntry(e []byte) string {
	base := strings.TrimRight(string(e[0:8]), " ")
	ext := strings.TrimRight(string(e[8:11]), " ")
	if len(base) > 0 && e[0] == entryE5Alias {
		base = string(rune(0xE5)) + base[1:]
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}
