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

import (
	"github.com/corehound/diskvfs/pkg/diskerr"
	"github.com/corehound/diskvfs/pkg/fs/ext"
	"github.com/corehound/diskvfs/pkg/fs/fatfs"
	"github.com/corehound/diskvfs/pkg/fs/hfsplus"
	"github.com/corehound/diskvfs/pkg/fs/iso9660"
	"github.com/corehound/diskvfs/pkg/fs/ntfs"
	"github.com/corehound/diskvfs/pkg/fs/udf"
	"github.com/corehound/diskvfs/pkg/fs/wimfs"
	"github.com/corehound/diskvfs/pkg/sparse"
	"github.com/corehound/diskvfs/pkg/vfs"
)

// mounters maps each Kind this package can detect to the vfs.Mounter that
// opens it, closing the loop spec.md §4.5 describes (detect a volume's
// kind, then mount the matching reader) but leaves to its caller.
var mounters = map[Kind]vfs.Mounter{
	Ext:     ext.Mount,
	NTFS:    ntfs.Mount,
	HFSPlus: hfsplus.Mount,
	UDF:     udf.Mount,
	ISO9660: iso9660.Mount,
	FAT:     fatfs.Mount,
	WIM:     wimfs.Mount,
}

// Mounter returns the vfs.Mounter registered for kind, if any.
func Mounter(kind Kind) (vfs.Mounter, bool) {
	m, ok := mounters[kind]
	return m, ok
}

// DetectAndMount detects stream's file-system kind against reg and mounts
// it with the matching reader in one step.
func DetectAndMount(reg *Registry, stream sparse.Stream, opts vfs.Options) (vfs.Filesystem, Kind, error) {
	kind, ok := reg.Detect(stream)
	if !ok {
		return nil, Unknown, diskerr.New(diskerr.UnsupportedFeature, "fsdetect", "no matching file-system signature", nil)
	}
	mounter, ok := Mounter(kind)
	if !ok {
		return nil, kind, diskerr.New(diskerr.UnsupportedFeature, "fsdetect", kind.String(), nil)
	}
	fsys, err := mounter(stream, opts)
	return fsys, kind, err
}
