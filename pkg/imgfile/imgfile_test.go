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

package imgfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corehound/diskvfs/pkg/imgfile"
	"github.com/stretchr/testify/require"
)

func TestOpenReadsViaMmapFastPath(t *testing.T) {
	content := []byte("0123456789abcdefghij")
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	f, err := imgfile.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.EqualValues(t, len(content), f.Size())

	got := make([]byte, 5)
	n, err := f.ReadAt(got, 10)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "abcde", string(got))

	extents, err := f.Extents(0, f.Size())
	require.NoError(t, err)
	require.Len(t, extents, 1)
	require.EqualValues(t, 0, extents[0].Offset)
	require.EqualValues(t, len(content), extents[0].Length)
}

func TestOpenEmptyFileFallsBackToPread(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.img")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f, err := imgfile.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.EqualValues(t, 0, f.Size())

	extents, err := f.Extents(0, 10)
	require.NoError(t, err)
	require.Nil(t, extents)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := imgfile.Open(filepath.Join(t.TempDir(), "missing.img"))
	require.Error(t, err)
}
