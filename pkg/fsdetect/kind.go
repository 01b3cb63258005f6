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

// Package fsdetect performs cheap signature-based file-system detection over
// a volume-level sparse.Stream, dispatching to one of the tagged FileSystem
// variants spec.md §4.5 names.
package fsdetect

// Kind tags which file-system reader a stream's signature matched.
type Kind int

const (
	Unknown Kind = iota
	Ext
	NTFS
	HFSPlus
	UDF
	ISO9660
	FAT
	WIM
)

func (k Kind) String() string {
	switch k {
	case Ext:
		return "ext"
	case NTFS:
		return "ntfs"
	case HFSPlus:
		return "hfsplus"
	case UDF:
		return "udf"
	case ISO9660:
		return "iso9660"
	case FAT:
		return "fat"
	case WIM:
		return "wim"
	default:
		return "unknown"
	}
}
