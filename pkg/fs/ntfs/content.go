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

package ntfs

import "github.com/corehound/diskvfs/pkg/sparse"

// dataExtents converts a $DATA attribute's run-list into absolute byte
// extents within the volume stream, clipped to the attribute's real size
// (spec.md §4.5 path_to_extents and §4.5.2 "File content = all fragments
// of the default DATA attribute in logical-cluster order").
func dataExtents(clusterSize int64, attr Attribute) sparse.Extents {
	if !attr.NonResident {
		return nil
	}
	var ext sparse.Extents
	logical := uint64(0)
	remaining := attr.RealSize
	for _, r := range attr.RunList {
		runBytes := r.Length * uint64(clusterSize)
		thisLen := runBytes
		if thisLen > remaining {
			thisLen = remaining
		}
		if !r.Sparse && thisLen > 0 {
			ext = append(ext, sparse.Extent{
				Offset: r.LCN * uint64(clusterSize),
				Length: thisLen,
			})
		}
		logical += r.Length
		if remaining > runBytes {
			remaining -= runBytes
		} else {
			remaining = 0
		}
	}
	return sparse.Normalize(ext)
}

// readContent materializes a $DATA attribute's bytes: the resident value
// directly, or every run's bytes read from the volume and concatenated in
// logical-cluster order, with sparse runs filled as zeros.
func readContent(stream sparse.Stream, clusterSize int64, attr Attribute) ([]byte, error) {
	if !attr.NonResident {
		return append([]byte(nil), attr.ResidentData...), nil
	}
	out := make([]byte, 0, attr.RealSize)
	remaining := attr.RealSize
	for _, r := range attr.RunList {
		runBytes := r.Length * uint64(clusterSize)
		thisLen := runBytes
		if thisLen > remaining {
			thisLen = remaining
		}
		if thisLen == 0 {
			continue
		}
		if r.Sparse {
			out = append(out, make([]byte, thisLen)...)
		} else {
			buf := make([]byte, thisLen)
			if err := sparse.ReadFull(stream, buf, int64(r.LCN*uint64(clusterSize))); err != nil {
				return nil, err
			}
			out = append(out, buf...)
		}
		if remaining > runBytes {
			remaining -= runBytes
		} else {
			remaining = 0
		}
	}
	if uint64(len(out)) > attr.RealSize {
		out = out[:attr.RealSize]
	}
	return out, nil
}
