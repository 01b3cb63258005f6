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

//go:build !windows

package imgfile

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// mmapBacking serves reads out of a memory-mapped region of the file, the
// fast path for the common case of an ordinary disk-image file.
type mmapBacking struct {
	data []byte
	f    *os.File
}

func (m *mmapBacking) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mmapBacking) Close() error {
	err := unix.Munmap(m.data)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// preadBacking falls back to ordinary positioned reads for paths that
// can't be mapped: character/block devices on some platforms reject
// mmap, and a zero-length regular file has nothing to map.
type preadBacking struct {
	f *os.File
}

func (p *preadBacking) ReadAt(b []byte, off int64) (int, error) { return p.f.ReadAt(b, off) }
func (p *preadBacking) Close() error                            { return p.f.Close() }

func openBacking(path string) (backing, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %q: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %q: %w", path, err)
	}
	size := fi.Size()

	if size <= 0 || !fi.Mode().IsRegular() {
		return &preadBacking{f: f}, size, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return &preadBacking{f: f}, size, nil
	}
	return &mmapBacking{data: data, f: f}, size, nil
}
