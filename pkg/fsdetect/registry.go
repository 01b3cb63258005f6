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
package fsdetect

import (
	"sort"

	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/table"
)

// Signature is one file system's magic bytes at a fixed offset from the
// start of its volume.
type Signature struct {
	Kind   Kind
	Offset int64
	Magic  []byte
}

type candidates []Signature

// probe groups every Signature registered at the same Offset behind one
// PrefixTable, the way the teacher's format.FileRegistry groups file-carving
// signatures that all start at the current scan position.
type probe struct {
	offset int64
	maxLen int
	table  *table.PrefixTable[candidates]
}

// Registry dispatches a stream to the Kind whose signature matches.
type Registry struct {
	probes []*probe
}

// NewRegistry returns an empty Registry; use Add to populate it or
// DefaultRegistry for the module's built-in signature set.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers one file system's signature.
func (r *Registry) Add(sig Signature) {
	for _, p := range r.probes {
		if p.offset == sig.Offset {
			existing, _ := p.table.Get(sig.Magic)
			p.table.Insert(sig.Magic, append(existing, sig))
			if len(sig.Magic) > p.maxLen {
				p.maxLen = len(sig.Magic)
			}
			return
		}
	}

	p := &probe{offset: sig.Offset, maxLen: len(sig.Magic), table: table.New[candidates]()}
	p.table.Insert(sig.Magic, candidates{sig})
	r.probes = append(r.probes, p)
	sort.Slice(r.probes, func(i, j int) bool { return r.probes[i].offset < r.probes[j].offset })
}

// Detect reads each registered probe's offset window off stream and returns
// the first Kind whose signature matches. Detection does no deeper
// validation — spec.md §4.5's detect() contract is a cheap, side-effect-free
// signature check; callers still run the reader's own open() to validate
// structure.
func (r *Registry) Detect(stream sparse.Stream) (Kind, bool) {
	for _, p := range r.probes {
		window := make([]byte, p.maxLen)
		n, err := stream.ReadAt(window, p.offset)
		if n == 0 && err != nil {
			continue
		}
		window = window[:n]

		var found Kind
		var ok bool
		p.table.Walk(window, func(sigs candidates) bool {
			for _, sig := range sigs {
				found, ok = sig.Kind, true
				return true
			}
			return false
		})
		if ok {
			return found, true
		}
	}
	return Unknown, false
}
