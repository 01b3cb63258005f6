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

// Package imgfile opens a disk-image file or raw device path as a
// pkg/sparse.Stream, the entry point every vdisk container opener in
// cmd/diskvfs starts from. On POSIX it mmaps the file for zero-copy reads,
// falling back to ordinary pread when the path can't be mapped (character
// devices, zero-length files); on Windows it opens the path with
// CreateFile and issues sector-aligned ReadFile calls, so a raw
// "\\.\PhysicalDriveN" path works the same as an ordinary .vhd file.
package imgfile

import (
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/sparse"
)

// File is a closeable sparse.Stream backed by an on-disk image or raw
// device. Every byte up to Size is reported as one fully-allocated extent:
// image files opened this way carry no sparseness information of their
// own, unlike the vdisk containers parsed from their contents.
type File struct {
	backing backing
	size    int64
}

// backing is implemented per-platform (posix.go, windows.go).
type backing interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// Open opens path for reading as a disk image. path may name an ordinary
// file (.vhd, .vmdk, a raw dd image) or, on a platform that supports it, a
// raw block device path.
func Open(path string) (*File, error) {
	b, size, err := openBacking(path)
	if err != nil {
		return nil, diskerr.New(diskerr.ReadError, "imgfile", path, err)
	}
	return &File{backing: b, size: size}, nil
}

func (f *File) Size() int64 { return f.size }

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.backing.ReadAt(p, off)
}

func (f *File) Extents(offset, length int64) (sparse.Extents, error) {
	if offset >= f.size || length <= 0 {
		return nil, nil
	}
	if offset+length > f.size {
		length = f.size - offset
	}
	return sparse.Extents{{Offset: uint64(offset), Length: uint64(length)}}, nil
}

func (f *File) Close() error { return f.backing.Close() }
