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

// Package partition reads MBR and GPT partition tables off a disk-level
// sparse.Stream and exposes each entry as its own sub-stream (spec.md §4.3).
package partition

import "github.com/corehound/diskvfs/pkg/sparse"

const SectorSize = 512

// Partition is one table entry, carrier-agnostic (MBR or GPT).
type Partition struct {
	Num      int
	Offset   uint64 // bytes from the start of the disk
	Size     uint64 // bytes
	Type     string // human-readable type (MBR type name or GPT type GUID)
	Bootable bool
	Name     string // GPT only; empty for MBR
}

// Stream carves out the Partition's byte range from disk.
func (p Partition) Stream(disk sparse.Stream) (sparse.Stream, error) {
	return sparse.NewSubStream(disk, int64(p.Offset), int64(p.Size))
}

// Table is the result of reading a disk's partition scheme.
type Table struct {
	Scheme     string // "mbr", "gpt" or "none"
	Partitions []Partition
	// Diagnostics carries non-fatal findings (e.g. GPT backup-out-of-sync)
	// surfaced to callers that want to report corruption without refusing
	// to mount.
	Diagnostics []Diagnostic
}

// Diagnostic is a non-fatal finding recorded while reading a partition
// table, such as a GPT backup header disagreeing with the primary.
type Diagnostic struct {
	Kind    string
	Message string
}
