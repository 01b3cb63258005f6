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

// Package sparse implements the sparse-stream / extent abstraction every
// container, partition and file-system reader in the module is built on
// (spec.md §3 "Sparse Stream", §4.1).
package sparse

import "sort"

// Extent is a contiguous half-open byte range [Offset, Offset+Length).
type Extent struct {
	Offset uint64
	Length uint64
}

func (e Extent) End() uint64 { return e.Offset + e.Length }

// adjacent reports whether e immediately precedes o with no gap, per
// spec.md §3's coalescing requirement.
func (e Extent) adjacent(o Extent) bool { return e.End() == o.Offset }

func (e Extent) overlaps(o Extent) bool { return e.Offset < o.End() && o.Offset < e.End() }

// Extents is a normalized (sorted, non-overlapping, no zero-length, no
// adjacency) set of Extent values.
type Extents []Extent

// Normalize sorts es and merges overlapping/adjacent/zero-length entries.
func Normalize(es []Extent) Extents {
	filtered := make([]Extent, 0, len(es))
	for _, e := range es {
		if e.Length > 0 {
			filtered = append(filtered, e)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Offset < filtered[j].Offset })

	out := make(Extents, 0, len(filtered))
	for _, e := range filtered {
		if n := len(out); n > 0 && (out[n-1].adjacent(e) || out[n-1].overlaps(e)) {
			last := &out[n-1]
			end := last.End()
			if e.End() > end {
				end = e.End()
			}
			last.Length = end - last.Offset
			continue
		}
		out = append(out, e)
	}
	return out
}

// Union returns the normalized union of a and b.
func Union(a, b Extents) Extents {
	all := make([]Extent, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return Normalize(all)
}

// Intersect returns the normalized intersection of a and b.
func Intersect(a, b Extents) Extents {
	var out []Extent
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := max64(a[i].Offset, b[j].Offset)
		hi := min64(a[i].End(), b[j].End())
		if lo < hi {
			out = append(out, Extent{Offset: lo, Length: hi - lo})
		}
		if a[i].End() < b[j].End() {
			i++
		} else {
			j++
		}
	}
	return Normalize(out)
}

// Subtract returns a with every range in b removed.
func Subtract(a, b Extents) Extents {
	var out []Extent
	for _, ae := range a {
		cur := ae
		for _, be := range b {
			if !cur.overlaps(be) {
				continue
			}
			if be.Offset > cur.Offset {
				out = append(out, Extent{Offset: cur.Offset, Length: be.Offset - cur.Offset})
			}
			if be.End() < cur.End() {
				cur = Extent{Offset: be.End(), Length: cur.End() - be.End()}
			} else {
				cur = Extent{}
				break
			}
		}
		if cur.Length > 0 {
			out = append(out, cur)
		}
	}
	return Normalize(out)
}

// Complement returns the ranges within [0, bound) not covered by es.
func Complement(es Extents, bound uint64) Extents {
	return Subtract(Extents{{Offset: 0, Length: bound}}, es)
}

// Contains reports whether the half-open range [offset, offset+length) is
// entirely covered by es.
func (es Extents) Contains(offset, length uint64) bool {
	target := Extent{Offset: offset, Length: length}
	for _, e := range es {
		if e.Offset <= target.Offset && target.End() <= e.End() {
			return true
		}
	}
	return false
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
