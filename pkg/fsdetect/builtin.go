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

import "sync"

// Each offset below is the on-disk byte position of the format's magic,
// relative to the start of its own volume (spec.md §4.5).
var builtinSignatures = []Signature{
	{Kind: WIM, Offset: 0, Magic: []byte("MSWIM\x00\x00\x00")},
	{Kind: NTFS, Offset: 3, Magic: []byte("NTFS    ")},
	{Kind: Ext, Offset: 0x438, Magic: []byte{0x53, 0xEF}},
	{Kind: HFSPlus, Offset: 1024, Magic: []byte("H+")},
	{Kind: HFSPlus, Offset: 1024, Magic: []byte("HX")},
	{Kind: ISO9660, Offset: 32769, Magic: []byte("CD001")},
	{Kind: UDF, Offset: 32768 + 2048 + 1, Magic: []byte("NSR02")},
	{Kind: UDF, Offset: 32768 + 2048 + 1, Magic: []byte("NSR03")},
	{Kind: FAT, Offset: 0x36, Magic: []byte("FAT12   ")},
	{Kind: FAT, Offset: 0x36, Magic: []byte("FAT16   ")},
	{Kind: FAT, Offset: 0x52, Magic: []byte("FAT32   ")},
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// DefaultRegistry returns the process-wide registry of every file-system
// signature this module knows how to detect, built once.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry()
		for _, sig := range builtinSignatures {
			defaultReg.Add(sig)
		}
	})
	return defaultReg
}
