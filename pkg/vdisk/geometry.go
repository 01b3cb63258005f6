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

// Package vdisk implements the virtual-disk container formats a partition
// table sits on top of: fixed, dynamic and differencing VHD-style images,
// plus a BAT-indexed sparse container with an internal metadata log in the
// style of the newer disk-image formats (spec.md §4.2).
package vdisk

import "fmt"

// Geometry is the stored CHS geometry hint. Capacity (the container's
// declared size), not geometry, is authoritative for addressing.
type Geometry struct {
	Cylinders uint16
	Heads     uint8
	Sectors   uint8
}

func (g Geometry) String() string {
	return fmt.Sprintf("%d/%d/%d (C/H/S)", g.Cylinders, g.Heads, g.Sectors)
}

// DiskType identifies a classic VHD footer's disk_type field.
type DiskType uint32

const (
	DiskTypeNone         DiskType = 0
	DiskTypeReserved     DiskType = 1
	DiskTypeFixed        DiskType = 2
	DiskTypeDynamic      DiskType = 3
	DiskTypeDifferencing DiskType = 4
)

func (t DiskType) String() string {
	switch t {
	case DiskTypeFixed:
		return "fixed"
	case DiskTypeDynamic:
		return "dynamic"
	case DiskTypeDifferencing:
		return "differencing"
	default:
		return "unknown"
	}
}
