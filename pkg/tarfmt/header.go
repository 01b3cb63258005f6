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

// Package tarfmt reads and writes the POSIX ustar container used to carry
// disk-image chunks for one of the vdisk container variants: a 512-byte
// header per entry, content padded to the next 512-byte boundary, and the
// GNU "././@LongLink" convention for names too long for the header's own
// name/prefix fields.
package tarfmt

import (
	"strconv"
	"strings"
	"time"

	"github.com/corehound/diskvfs/pkg/bytesx"
	"github.com/corehound/diskvfs/pkg/diskerr"
)

const (
	blockSize = 512

	nameOff, nameSize         = 0, 100
	modeOff, modeSize         = 100, 8
	uidOff, uidSize           = 108, 8
	gidOff, gidSize           = 116, 8
	sizeOff, sizeSize         = 124, 12
	mtimeOff, mtimeSize       = 136, 12
	chksumOff, chksumSize     = 148, 8
	typeflagOff               = 156
	linknameOff, linknameSize = 157, 100
	magicOff, magicSize       = 257, 6
	versionOff, versionSize   = 263, 2
	unameOff, unameSize       = 265, 32
	gnameOff, gnameSize       = 297, 32
	devmajorOff, devmajorSize = 329, 8
	devminorOff, devminorSize = 337, 8
	prefixOff, prefixSize     = 345, 131
)

const (
	// TypeRegular is a plain file entry.
	TypeRegular = '0'
	// TypeDirectory stores no payload; round-trip requires an empty body.
	TypeDirectory = '5'
	// TypeLongLink is the GNU extension carrying the following entry's
	// full name as its body, used when that name has no valid prefix
	// split under the ustar name(100)/prefix(131) field limits.
	TypeLongLink = 'L'
	// TypeLink and TypeSymlink are carried through for round-trip but not
	// otherwise interpreted by this package.
	TypeLink    = '1'
	TypeSymlink = '2'
)

const longLinkName = "././@LongLink"

const ustarMagic = "ustar\x00"

// Header is one archive entry's metadata. Name is always the full path,
// already reassembled from any preceding long-link entry on read, or about
// to be split (and long-link-injected if necessary) on write.
type Header struct {
	Name     string
	Mode     int64
	UID      int64
	GID      int64
	Size     int64
	ModTime  time.Time
	Typeflag byte
	Linkname string
	Uname    string
	Gname    string
	Devmajor int64
	Devminor int64
}

// parseHeader decodes one 512-byte block. An all-zero block is the archive
// end marker and is reported via ok=false rather than an error.
func parseHeader(block []byte) (hdr Header, ok bool, err error) {
	if len(block) != blockSize {
		return Header{}, false, diskerr.New(diskerr.Truncated, "tarfmt", "header block", nil)
	}
	if isZero(block) {
		return Header{}, false, nil
	}

	size, err := bytesx.ParseTarSize(block[sizeOff : sizeOff+sizeSize])
	if err != nil {
		return Header{}, false, diskerr.New(diskerr.CorruptStructure, "tarfmt", "entry size", err)
	}
	mode, err := bytesx.ParseOctal(block[modeOff : modeOff+modeSize])
	if err != nil {
		return Header{}, false, diskerr.New(diskerr.CorruptStructure, "tarfmt", "entry mode", err)
	}
	uid, err := bytesx.ParseOctal(block[uidOff : uidOff+uidSize])
	if err != nil {
		return Header{}, false, diskerr.New(diskerr.CorruptStructure, "tarfmt", "entry uid", err)
	}
	gid, err := bytesx.ParseOctal(block[gidOff : gidOff+gidSize])
	if err != nil {
		return Header{}, false, diskerr.New(diskerr.CorruptStructure, "tarfmt", "entry gid", err)
	}
	mtime, err := bytesx.ParseOctal(block[mtimeOff : mtimeOff+mtimeSize])
	if err != nil {
		return Header{}, false, diskerr.New(diskerr.CorruptStructure, "tarfmt", "entry mtime", err)
	}
	devmajor, _ := bytesx.ParseOctal(block[devmajorOff : devmajorOff+devmajorSize])
	devminor, _ := bytesx.ParseOctal(block[devminorOff : devminorOff+devminorSize])

	chksum, err := bytesx.ParseOctal(block[chksumOff : chksumOff+chksumSize])
	if err != nil {
		return Header{}, false, diskerr.New(diskerr.CorruptStructure, "tarfmt", "entry checksum", err)
	}
	if uint32(chksum) != checksum(block) {
		return Header{}, false, diskerr.New(diskerr.ChecksumMismatch, "tarfmt", "entry checksum", nil)
	}

	name := joinPrefix(cstring(block[prefixOff:prefixOff+prefixSize]), cstring(block[nameOff:nameOff+nameSize]))

	hdr = Header{
		Name:     name,
		Mode:     mode,
		UID:      uid,
		GID:      gid,
		Size:     size,
		ModTime:  time.Unix(mtime, 0).UTC(),
		Typeflag: block[typeflagOff],
		Linkname: cstring(block[linknameOff : linknameOff+linknameSize]),
		Uname:    cstring(block[unameOff : unameOff+unameSize]),
		Gname:    cstring(block[gnameOff : gnameOff+gnameSize]),
		Devmajor: devmajor,
		Devminor: devminor,
	}
	return hdr, true, nil
}

// encodeHeader serializes hdr into a 512-byte block. name and prefix are
// passed in already split (see splitName): the caller decides whether a
// long-link entry precedes this one.
func encodeHeader(hdr Header, name, prefix string) []byte {
	block := make([]byte, blockSize)
	copy(block[nameOff:nameOff+nameSize], name)
	putOctal(block[modeOff:modeOff+modeSize], hdr.Mode)
	putOctal(block[uidOff:uidOff+uidSize], hdr.UID)
	putOctal(block[gidOff:gidOff+gidSize], hdr.GID)
	putOctal(block[sizeOff:sizeOff+sizeSize], hdr.Size)
	putOctal(block[mtimeOff:mtimeOff+mtimeSize], hdr.ModTime.Unix())
	block[typeflagOff] = hdr.Typeflag
	copy(block[linknameOff:linknameOff+linknameSize], hdr.Linkname)
	copy(block[magicOff:magicOff+magicSize], ustarMagic)
	copy(block[versionOff:versionOff+versionSize], "00")
	copy(block[unameOff:unameOff+unameSize], hdr.Uname)
	copy(block[gnameOff:gnameOff+gnameSize], hdr.Gname)
	putOctal(block[devmajorOff:devmajorOff+devmajorSize], hdr.Devmajor)
	putOctal(block[devminorOff:devminorOff+devminorSize], hdr.Devminor)
	copy(block[prefixOff:prefixOff+prefixSize], prefix)

	for i := range block[chksumOff : chksumOff+chksumSize] {
		block[chksumOff+i] = ' '
	}
	putOctalNoNull(block[chksumOff:chksumOff+chksumSize-1], int64(checksum(block)))
	block[chksumOff+chksumSize-1] = ' '
	return block
}

// checksum sums every byte of block with the checksum field itself treated
// as eight ASCII spaces.
func checksum(block []byte) uint32 {
	var sum uint32
	for i, b := range block {
		if i >= chksumOff && i < chksumOff+chksumSize {
			b = ' '
		}
		sum += uint32(b)
	}
	return sum
}

// splitName chooses the ustar name/prefix split for path, reporting ok=false
// when no split keeps both fields within their 99/131-byte limits (the
// trailing byte of the 100-byte name field is reserved for its terminator) —
// callers fall back to a long-link entry in that case.
func splitName(path string) (name, prefix string, ok bool) {
	if len(path) <= nameSize-1 {
		return path, "", true
	}
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] != '/' {
			continue
		}
		head, tail := path[:i], path[i+1:]
		if len(tail) <= nameSize-1 && len(head) <= prefixSize {
			return tail, head, true
		}
	}
	return "", "", false
}

func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func cstring(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(string(b), " ")
}

func putOctal(b []byte, v int64) {
	putOctalNoNull(b[:len(b)-1], v)
	b[len(b)-1] = 0
}

func putOctalNoNull(b []byte, v int64) {
	s := strconv.FormatInt(v, 8)
	if len(s) > len(b) {
		s = s[len(s)-len(b):]
	}
	for i := range b {
		b[i] = '0'
	}
	copy(b[len(b)-len(s):], s)
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
