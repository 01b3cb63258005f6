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

package tarfmt_test

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/corehound/diskvfs/pkg/tarfmt"
	"github.com/stretchr/testify/require"
)

func TestRoundTripRegularAndDirectory(t *testing.T) {
	var buf bytes.Buffer
	w := tarfmt.NewWriter(&buf)

	mtime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, w.WriteHeader(tarfmt.Header{
		Name: "dir/", Mode: 0755, Typeflag: tarfmt.TypeDirectory, ModTime: mtime,
	}))

	content := []byte("hello, world\n")
	require.NoError(t, w.WriteHeader(tarfmt.Header{
		Name: "dir/file.txt", Mode: 0644, Size: int64(len(content)),
		Typeflag: tarfmt.TypeRegular, ModTime: mtime, Uname: "root", Gname: "root",
	}))
	n, err := w.Write(content)
	require.NoError(t, err)
	require.Equal(t, len(content), n)
	require.NoError(t, w.Close())

	require.Zero(t, buf.Len()%512)

	r := tarfmt.NewReader(&buf)

	hdr, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "dir/", hdr.Name)
	require.Equal(t, byte(tarfmt.TypeDirectory), hdr.Typeflag)
	require.Zero(t, hdr.Size)

	hdr, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, "dir/file.txt", hdr.Name)
	require.EqualValues(t, len(content), hdr.Size)
	require.Equal(t, "root", hdr.Uname)

	got := make([]byte, hdr.Size)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	require.Equal(t, content, got)

	_, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestLongNameUsesLongLinkEntry(t *testing.T) {
	longPath := strings.Repeat("a", 170) + "/" + strings.Repeat("b", 9) + ".txt"
	require.Greater(t, len(longPath), 180-1)

	var buf bytes.Buffer
	w := tarfmt.NewWriter(&buf)
	require.NoError(t, w.WriteHeader(tarfmt.Header{
		Name: longPath, Mode: 0644, Size: 5, Typeflag: tarfmt.TypeRegular,
	}))
	_, err := w.Write([]byte("stuff"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := tarfmt.NewReader(&buf)
	hdr, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, longPath, hdr.Name)
	require.EqualValues(t, 5, hdr.Size)

	got := make([]byte, 5)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	require.Equal(t, "stuff", string(got))

	_, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestNextSkipsUnreadContentAndPadding(t *testing.T) {
	var buf bytes.Buffer
	w := tarfmt.NewWriter(&buf)
	require.NoError(t, w.WriteHeader(tarfmt.Header{Name: "a.bin", Size: 1000, Typeflag: tarfmt.TypeRegular}))
	_, err := w.Write(bytes.Repeat([]byte{0x7f}, 1000))
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(tarfmt.Header{Name: "b.bin", Size: 3, Typeflag: tarfmt.TypeRegular}))
	_, err = w.Write([]byte("xyz"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := tarfmt.NewReader(&buf)

	hdr, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "a.bin", hdr.Name)
	// Deliberately do not read "a.bin"'s content before advancing.

	hdr, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, "b.bin", hdr.Name)
	got := make([]byte, 3)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	require.Equal(t, "xyz", string(got))
}

func TestLargeEntryBufferRandomAccess(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 10000) // 100000 bytes

	var buf bytes.Buffer
	w := tarfmt.NewWriter(&buf)
	require.NoError(t, w.WriteHeader(tarfmt.Header{Name: "big.bin", Size: int64(len(content)), Typeflag: tarfmt.TypeRegular}))
	_, err := w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := tarfmt.NewReader(&buf)
	hdr, err := r.Next()
	require.NoError(t, err)
	require.EqualValues(t, len(content), hdr.Size)

	stream, err := tarfmt.NewLargeEntryBuffer(r, hdr.Size, 4096)
	require.NoError(t, err)
	require.Equal(t, hdr.Size, stream.Size())

	out := make([]byte, 20)
	n, err := stream.ReadAt(out, 4090)
	require.NoError(t, err)
	require.Equal(t, 20, n)
	require.Equal(t, content[4090:4110], out)

	tail := make([]byte, 10)
	n, err = stream.ReadAt(tail, int64(len(content))-10)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, content[len(content)-10:], tail)
}
