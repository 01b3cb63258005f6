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
package partition

import "github.com/corehound/diskvfs/pkg/sparse"

// Detect tries GPT first (it requires and validates a protective MBR, so it
// is the stronger signal), then plain MBR, and finally falls back to a
// single whole-disk partition when neither table is present — the same
// fallback the teacher's partition discovery already uses for unpartitioned
// images handed to it directly.
func Detect(disk sparse.Stream) (*Table, error) {
	if t, err := ReadGPT(disk); err == nil {
		return t, nil
	}
	if t, err := ReadMBR(disk); err == nil {
		return t, nil
	}
	return &Table{
		Scheme: "none",
		Partitions: []Partition{{
			Num:    1,
			Offset: 0,
			Size:   uint64(disk.Size()),
			Type:   "whole-disk",
		}},
	}, nil
}
